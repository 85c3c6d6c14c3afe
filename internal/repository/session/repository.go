package session

import (
	"context"

	"frunk-store/internal/domain"
)

// Repository stores opaque bearer tokens issued at login.
type Repository interface {
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}
