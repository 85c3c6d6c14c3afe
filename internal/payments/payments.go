// Package payments talks to the hosted checkout provider: it opens checkout
// sessions for pending orders and verifies the signed events the provider
// posts back.
package payments

import (
	"context"

	"frunk-store/internal/domain"
)

// Event types the webhook handler reacts to.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)

// PaymentStatusPaid is the session payment status that marks a successful charge.
const PaymentStatusPaid = "paid"

// LineItem is one priced line on the hosted checkout page.
type LineItem struct {
	Name        string
	Description string
	Images      []string
	UnitAmount  int64
	Quantity    int64
}

// ShippingRate is a flat shipping tier offered on the checkout page.
type ShippingRate struct {
	DisplayName string
	Amount      int64
	MinDays     int64
	MaxDays     int64
}

// SessionRequest describes a checkout session to open.
type SessionRequest struct {
	Currency         string
	Items            []LineItem
	ShippingRates    []ShippingRate
	AllowedCountries []string
	Metadata         map[string]string
	CustomerEmail    string
	SuccessURL       string
	CancelURL        string
}

// Session is the provider's answer to a SessionRequest.
type Session struct {
	ID  string
	URL string
}

// CheckoutSession is the subset of a completed session the order flow needs.
type CheckoutSession struct {
	ID              string
	PaymentStatus   string
	PaymentIntentID string
	Metadata        map[string]string
	CustomerEmail   string
	AmountTotal     int64
	ShippingAmount  int64
	ShippingAddress *domain.ShippingAddress
}

// Event is a verified webhook event. Session is set for checkout.session.* events.
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// SessionCreator opens hosted checkout sessions.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// SessionRetriever looks up a checkout session by id.
type SessionRetriever interface {
	RetrieveSession(ctx context.Context, id string) (*CheckoutSession, error)
}

// EventVerifier authenticates and decodes webhook deliveries.
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (*Event, error)
}
