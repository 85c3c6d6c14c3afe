package order

import (
	"context"
	"time"

	"frunk-store/internal/domain"
)

// CreateInput describes a new pending order. Shipping starts at zero and the
// total is set to the subtotal.
type CreateInput struct {
	ID       string
	UserID   *string
	Email    string
	Items    []domain.OrderItem
	Subtotal int64
}

// PaymentUpdate carries the fields confirmed by the payment provider.
type PaymentUpdate struct {
	Email           string
	PaymentIntentID string
	Shipping        int64
	Total           int64
	ShippingAddress *domain.ShippingAddress
}

// ClaimTTL is how long a fulfillment claim blocks other dispatchers before it
// is considered abandoned.
const ClaimTTL = 15 * time.Minute

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	SetPaymentSession(ctx context.Context, id, sessionID string) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentSession(ctx context.Context, sessionID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ApplyPayment(ctx context.Context, id string, upd PaymentUpdate) (*domain.Order, error)
	ClaimFulfillment(ctx context.Context, id string) (bool, error)
	ReleaseFulfillment(ctx context.Context, id string) error
	MarkProcessing(ctx context.Context, id, vendorOrderID string) error
}
