package httpserver

import (
	"context"

	"frunk-store/internal/catalog"
	"frunk-store/internal/domain"
	"frunk-store/internal/ratelimit"
	"frunk-store/internal/service/checkout"
	"frunk-store/internal/service/payment"
	usersvc "frunk-store/internal/service/user"
)

// CatalogReader is the browse side of the product catalog.
type CatalogReader interface {
	Products() []catalog.Product
	ByCategory(cat catalog.Category) []catalog.Product
	ProductBySlug(slug string) (catalog.Product, error)
}

type CheckoutService interface {
	Start(ctx context.Context, in checkout.Input) (*checkout.Result, error)
}

type PaymentService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*payment.Result, error)
	Confirmation(ctx context.Context, sessionID string) (*payment.Confirmation, error)
}

type UserService interface {
	Signup(ctx context.Context, in usersvc.Credentials) (*domain.User, error)
	Login(ctx context.Context, in usersvc.Credentials) (*domain.User, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
	SessionTTLSeconds() int
}

// OrderLister reads a signed-in user's order history.
type OrderLister interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// Deps groups the services the router dispatches to. CheckoutLimiter may be
// nil to disable throttling. Forwarded client addresses are only honoured
// from TrustedProxies (IPs or CIDRs).
type Deps struct {
	Catalog         CatalogReader
	CheckoutSvc     CheckoutService
	PaymentSvc      PaymentService
	UserSvc         UserService
	Orders          OrderLister
	CheckoutLimiter ratelimit.Limiter
	AllowedOrigins  []string
	TrustedProxies  []string
	Integrations    map[string]Integration
}
