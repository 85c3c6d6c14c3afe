package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"frunk-store/internal/domain"
	"frunk-store/internal/payments"
	orderrepo "frunk-store/internal/repository/order"
	"frunk-store/internal/service/checkout"
	"frunk-store/internal/service/fulfillment"
)

// ErrPaymentIncomplete is returned by Confirmation for orders not yet paid.
var ErrPaymentIncomplete = errors.New("payment incomplete")

// Fulfiller dispatches paid orders to the vendor.
type Fulfiller interface {
	Configured() bool
	Dispatch(ctx context.Context, o domain.Order) (fulfillment.Outcome, error)
}

// Outcome records what a webhook delivery did.
type Outcome string

const (
	OutcomeIgnored       Outcome = "ignored"
	OutcomeOrderNotFound Outcome = "order_not_found"
	OutcomePaid          Outcome = "paid"
	OutcomePaymentFailed Outcome = "payment_failed"
)

// Result is returned for every acknowledged delivery.
type Result struct {
	EventID     string
	EventType   string
	OrderID     string
	Outcome     Outcome
	Fulfillment fulfillment.Outcome
}

// Service applies verified payment events to orders.
type Service struct {
	verifier  payments.EventVerifier
	orders    orderrepo.Repository
	fulfiller Fulfiller
	logger    *log.Logger
}

// New builds the webhook service. fulfiller may be nil.
func New(verifier payments.EventVerifier, orders orderrepo.Repository, fulfiller Fulfiller, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{verifier: verifier, orders: orders, fulfiller: fulfiller, logger: logger}
}

// HandleWebhook verifies a delivery and applies it. Signature and
// configuration problems are returned as errors and mutate nothing. Events
// that do not belong to a known store order are acknowledged without effect.
// Fulfillment failures are logged and never turn into an error.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Result, error) {
	if s.verifier == nil {
		return nil, fmt.Errorf("webhook: %w", domain.ErrNotConfigured)
	}
	evt, err := s.verifier.VerifyEvent(payload, signature)
	if err != nil {
		s.logger.Printf("webhook: rejected err=%v", err)
		return nil, err
	}
	s.logger.Printf("webhook: received id=%s type=%s", evt.ID, evt.Type)

	res := &Result{EventID: evt.ID, EventType: evt.Type, Outcome: OutcomeIgnored}
	switch evt.Type {
	case payments.EventCheckoutSessionCompleted:
		if err := s.handleCompleted(ctx, evt.Session, res); err != nil {
			return nil, err
		}
	case payments.EventPaymentIntentFailed:
		s.logger.Printf("webhook: payment failed event=%s", evt.ID)
		res.Outcome = OutcomePaymentFailed
	default:
		s.logger.Printf("webhook: unhandled event type=%s", evt.Type)
	}
	return res, nil
}

func (s *Service) handleCompleted(ctx context.Context, cs *payments.CheckoutSession, res *Result) error {
	if cs == nil || cs.PaymentStatus != payments.PaymentStatusPaid {
		return nil
	}
	if cs.Metadata["type"] != checkout.OrderType {
		s.logger.Printf("webhook: session=%s is not a store order", cs.ID)
		return nil
	}
	orderID := cs.Metadata["orderId"]
	if orderID == "" {
		s.logger.Printf("webhook: session=%s has no order id", cs.ID)
		return nil
	}
	res.OrderID = orderID

	existing, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("webhook: order=%s not found", orderID)
		res.Outcome = OutcomeOrderNotFound
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}

	total := cs.AmountTotal
	if total == 0 {
		total = existing.Subtotal + cs.ShippingAmount
	}
	if total != existing.Subtotal+cs.ShippingAmount {
		s.logger.Printf("webhook: order=%s charged total=%d differs from subtotal=%d + shipping=%d", orderID, total, existing.Subtotal, cs.ShippingAmount)
	}

	paid, err := s.orders.ApplyPayment(ctx, orderID, orderrepo.PaymentUpdate{
		Email:           cs.CustomerEmail,
		PaymentIntentID: cs.PaymentIntentID,
		Shipping:        cs.ShippingAmount,
		Total:           total,
		ShippingAddress: cs.ShippingAddress,
	})
	if errors.Is(err, domain.ErrNotFound) {
		res.Outcome = OutcomeOrderNotFound
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply payment to %s: %w", orderID, err)
	}
	res.Outcome = OutcomePaid
	s.logger.Printf("webhook: order=%s status=%s total=%d", orderID, paid.Status, paid.Total)

	res.Fulfillment = s.fulfill(ctx, *paid)
	return nil
}

func (s *Service) fulfill(ctx context.Context, o domain.Order) fulfillment.Outcome {
	if s.fulfiller == nil || !s.fulfiller.Configured() {
		s.logger.Printf("webhook: order=%s fulfillment skipped: vendor not configured", o.ID)
		return fulfillment.OutcomeNotConfigured
	}
	if o.ShippingAddress == nil {
		s.logger.Printf("webhook: order=%s fulfillment skipped: no shipping address", o.ID)
		return fulfillment.OutcomeNoAddress
	}
	outcome, err := s.fulfiller.Dispatch(ctx, o)
	if err != nil {
		s.logger.Printf("webhook: order=%s fulfillment failed, left paid for manual follow-up: %v", o.ID, err)
		return ""
	}
	return outcome
}

// ConfirmationItem is a purchased line shown on the confirmation page.
type ConfirmationItem struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// Confirmation is the post-checkout receipt.
type Confirmation struct {
	OrderNumber     string                  `json:"orderNumber"`
	Status          domain.OrderStatus      `json:"status"`
	Email           string                  `json:"email"`
	Subtotal        int64                   `json:"subtotal"`
	Shipping        int64                   `json:"shipping"`
	Total           int64                   `json:"total"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
	Items           []ConfirmationItem      `json:"items"`
}

// Confirmation returns the receipt for a checkout session once the payment
// has been recorded. While the order is still pending, the provider's session
// is consulted so a shopper redirected before the webhook arrives still gets
// a receipt.
func (s *Service) Confirmation(ctx context.Context, sessionID string) (*Confirmation, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id required", domain.ErrInvalid)
	}
	o, err := s.orders.GetByPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if o.Status == domain.OrderStatusPending {
		return s.confirmFromSession(ctx, sessionID, *o)
	}
	if !o.Status.Settled() {
		return nil, ErrPaymentIncomplete
	}
	return receipt(*o), nil
}

func (s *Service) confirmFromSession(ctx context.Context, sessionID string, o domain.Order) (*Confirmation, error) {
	retriever := s.sessionRetriever()
	if retriever == nil {
		return nil, ErrPaymentIncomplete
	}
	cs, err := retriever.RetrieveSession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotConfigured) {
		return nil, ErrPaymentIncomplete
	}
	if err != nil {
		s.logger.Printf("confirmation: session=%s lookup failed err=%v", sessionID, err)
		return nil, err
	}
	if cs.PaymentStatus != payments.PaymentStatusPaid {
		return nil, ErrPaymentIncomplete
	}
	if id := cs.Metadata["orderId"]; id != "" && id != o.ID {
		s.logger.Printf("confirmation: session=%s belongs to order=%s, not %s", sessionID, id, o.ID)
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}

	o.Status = domain.OrderStatusPaid
	o.Shipping = cs.ShippingAmount
	o.Total = cs.AmountTotal
	if o.Total == 0 {
		o.Total = o.Subtotal + cs.ShippingAmount
	}
	if cs.CustomerEmail != "" {
		o.Email = cs.CustomerEmail
	}
	if cs.ShippingAddress != nil {
		o.ShippingAddress = cs.ShippingAddress
	}
	return receipt(o), nil
}

// sessionRetriever returns the verifier's session lookup when it has API
// credentials.
func (s *Service) sessionRetriever() payments.SessionRetriever {
	r, ok := s.verifier.(payments.SessionRetriever)
	if !ok {
		return nil
	}
	if c, ok := s.verifier.(interface{ CheckoutConfigured() bool }); ok && !c.CheckoutConfigured() {
		return nil
	}
	return r
}

func receipt(o domain.Order) *Confirmation {
	out := &Confirmation{
		OrderNumber:     o.ID,
		Status:          o.Status,
		Email:           o.Email,
		Subtotal:        o.Subtotal,
		Shipping:        o.Shipping,
		Total:           o.Total,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]ConfirmationItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, ConfirmationItem{
			Name: it.Name, Size: it.Size, Color: it.Color, Quantity: it.Quantity, Price: it.Price,
		})
	}
	return out
}
