package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	"frunk-store/internal/catalog"
	"frunk-store/internal/domain"
	"frunk-store/internal/payments"
	orderrepo "frunk-store/internal/repository/order"

	"github.com/google/uuid"
)

// OrderType tags sessions created by the storefront so the webhook can tell
// them apart from other checkout flows on the same account.
const OrderType = "store_order"

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// AllowedCountries are the shipping destinations offered on the checkout page.
var AllowedCountries = []string{
	"US", "CA", "GB", "AU", "DE", "FR", "ES", "IT", "NL", "BE",
	"AT", "CH", "SE", "NO", "DK", "FI", "IE", "PT", "PL", "CZ",
}

// ShippingRates are the flat shipping tiers offered on the checkout page.
var ShippingRates = []payments.ShippingRate{
	{DisplayName: "Standard Shipping", Amount: 500, MinDays: 5, MaxDays: 10},
	{DisplayName: "Express Shipping", Amount: 1500, MinDays: 2, MaxDays: 5},
}

// Catalog is the read side of the product catalog used to price a cart.
type Catalog interface {
	ProductByID(id string) (catalog.Product, error)
	Variant(productID, variantID string) (catalog.Variant, error)
}

// Line is one cart entry submitted by the storefront.
type Line struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Input is a checkout request. UserID and Email are set when the shopper is
// signed in.
type Input struct {
	Items  []Line
	UserID *string
	Email  string
}

// Result is returned to the storefront, which redirects to URL.
type Result struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"-"`
	URL       string `json:"url"`
}

// Service starts hosted checkouts for carts.
type Service struct {
	catalog Catalog
	orders  orderrepo.Repository
	gateway payments.SessionCreator
	baseURL string
	logger  *log.Logger
	newID   func() string
}

// New builds the checkout service. gateway may be nil when payment
// credentials are absent; Start then fails with domain.ErrNotConfigured.
func New(cat Catalog, orders orderrepo.Repository, gateway payments.SessionCreator, publicBaseURL string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		catalog: cat,
		orders:  orders,
		gateway: gateway,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Configured reports whether a payment gateway with credentials is wired.
func (s *Service) Configured() bool {
	if s.gateway == nil {
		return false
	}
	if c, ok := s.gateway.(interface{ CheckoutConfigured() bool }); ok {
		return c.CheckoutConfigured()
	}
	return true
}

type pricedLine struct {
	product catalog.Product
	variant catalog.Variant
	qty     int
}

// Start validates the cart, persists a pending order and opens a hosted
// checkout session for it. Nothing is written when validation fails.
func (s *Service) Start(ctx context.Context, in Input) (*Result, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("checkout: %w", domain.ErrNotConfigured)
	}
	lines, err := s.price(in.Items)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(lines))
	sessionItems := make([]payments.LineItem, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		subtotal += l.product.Price * int64(l.qty)
		items = append(items, domain.OrderItem{
			ProductID:       l.product.ID,
			VariantID:       l.variant.ID,
			VendorVariantID: l.variant.VendorVariantID,
			Name:            l.product.Name,
			Size:            l.variant.Size,
			Color:           l.variant.Color,
			Quantity:        l.qty,
			Price:           l.product.Price,
		})
		sessionItems = append(sessionItems, payments.LineItem{
			Name:        fmt.Sprintf("%s - %s / %s", l.product.Name, l.variant.Color, l.variant.Size),
			Description: l.product.Description,
			Images:      remoteImages(l.product.Images),
			UnitAmount:  l.product.Price,
			Quantity:    int64(l.qty),
		})
	}

	orderID := s.newID()
	if _, err := s.orders.Create(ctx, orderrepo.CreateInput{
		ID:       orderID,
		UserID:   in.UserID,
		Email:    in.Email,
		Items:    items,
		Subtotal: subtotal,
	}); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.logger.Printf("checkout: order created id=%s lines=%d subtotal=%d", orderID, len(items), subtotal)

	sess, err := s.gateway.CreateCheckoutSession(ctx, payments.SessionRequest{
		Currency:         "usd",
		Items:            sessionItems,
		ShippingRates:    ShippingRates,
		AllowedCountries: AllowedCountries,
		Metadata:         map[string]string{"orderId": orderID, "type": OrderType},
		CustomerEmail:    in.Email,
		SuccessURL:       s.baseURL + "/store/order-confirmation?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        s.baseURL + "/store/" + url.PathEscape(lines[0].product.Slug) + "?cancelled=true",
	})
	if err != nil {
		s.logger.Printf("checkout: session failed order=%s err=%v", orderID, err)
		return nil, err
	}

	if err := s.orders.SetPaymentSession(ctx, orderID, sess.ID); err != nil {
		s.logger.Printf("checkout: store session id failed order=%s session=%s err=%v", orderID, sess.ID, err)
	}
	return &Result{OrderID: orderID, SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *Service) price(cart []Line) ([]pricedLine, error) {
	if len(cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalid)
	}
	out := make([]pricedLine, 0, len(cart))
	for i, line := range cart {
		if line.ProductID == "" || line.VariantID == "" {
			return nil, fmt.Errorf("%w: line %d: product and variant are required", domain.ErrInvalid, i)
		}
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 1 || qty > MaxQuantity {
			return nil, fmt.Errorf("%w: line %d: quantity must be between 1 and %d", domain.ErrInvalid, i, MaxQuantity)
		}
		p, err := s.catalog.ProductByID(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", line.ProductID, err)
		}
		v, err := s.catalog.Variant(line.ProductID, line.VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: variant %q not available", domain.ErrInvalid, line.VariantID)
			}
			return nil, err
		}
		if !v.InStock {
			return nil, fmt.Errorf("%w: variant %q not available", domain.ErrInvalid, line.VariantID)
		}
		out = append(out, pricedLine{product: p, variant: v, qty: qty})
	}
	return out, nil
}

func remoteImages(images []string) []string {
	if len(images) > 0 && strings.HasPrefix(images[0], "http") {
		return images[:1]
	}
	return nil
}
