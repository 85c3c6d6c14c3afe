package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"frunk-store/internal/domain"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// StripeConfig holds credentials for the Stripe gateway. BaseURL and
// HTTPClient are only overridden in tests.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	HTTPClient    *http.Client
}

// Stripe implements SessionCreator and EventVerifier on top of stripe-go.
type Stripe struct {
	sessions      session.Client
	secretKey     string
	webhookSecret string
	logger        *log.Logger
}

var (
	_ SessionCreator   = (*Stripe)(nil)
	_ EventVerifier    = (*Stripe)(nil)
	_ SessionRetriever = (*Stripe)(nil)
)

// NewStripe builds a gateway. Missing credentials are reported per call as
// domain.ErrNotConfigured so the process can still serve the catalog.
func NewStripe(cfg StripeConfig, logger *log.Logger) *Stripe {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	backendCfg := &stripe.BackendConfig{
		LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
		backendCfg.MaxNetworkRetries = stripe.Int64(0)
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}
	return &Stripe{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// CheckoutConfigured reports whether sessions can be created.
func (s *Stripe) CheckoutConfigured() bool { return s.secretKey != "" }

// CreateCheckoutSession opens a payment-mode session with address collection
// and flat shipping tiers.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("stripe secret key: %w", domain.ErrNotConfigured)
	}
	params := buildSessionParams(req)
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		s.logger.Printf("stripe: create session failed err=%v", err)
		return nil, fmt.Errorf("%w: create checkout session: %v", domain.ErrUpstream, err)
	}
	s.logger.Printf("stripe: session created id=%s", cs.ID)
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

// RetrieveSession fetches a checkout session from the API and decodes it the
// same way as webhook payloads.
func (s *Stripe) RetrieveSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("stripe secret key: %w", domain.ErrNotConfigured)
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.sessions.Get(id, params)
	if err != nil {
		var apiErr *stripe.Error
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("checkout session %s: %w", id, domain.ErrNotFound)
		}
		s.logger.Printf("stripe: retrieve session id=%s err=%v", id, err)
		return nil, fmt.Errorf("%w: retrieve checkout session: %v", domain.ErrUpstream, err)
	}
	if cs.LastResponse == nil || len(cs.LastResponse.RawJSON) == 0 {
		return nil, fmt.Errorf("%w: empty checkout session response", domain.ErrUpstream)
	}
	out, err := decodeSession(cs.LastResponse.RawJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: decode checkout session: %v", domain.ErrUpstream, err)
	}
	return out, nil
}

// VerifyEvent checks the signature header against the webhook secret and
// decodes the event.
func (s *Stripe) VerifyEvent(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret: %w", domain.ErrNotConfigured)
	}
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", domain.ErrInvalidSignature)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return decodeEvent(evt)
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if len(item.Images) > 0 {
			product.Images = stripe.StringSlice(item.Images)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		}
	}

	for _, rate := range req.ShippingRates {
		params.ShippingOptions = append(params.ShippingOptions, &stripe.CheckoutSessionShippingOptionParams{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				Type:        stripe.String("fixed_amount"),
				DisplayName: stripe.String(rate.DisplayName),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(rate.Amount),
					Currency: stripe.String(currency),
				},
				DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
					Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
						Unit:  stripe.String("business_day"),
						Value: stripe.Int64(rate.MinDays),
					},
					Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
						Unit:  stripe.String("business_day"),
						Value: stripe.Int64(rate.MaxDays),
					},
				},
			},
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}
