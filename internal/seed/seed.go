package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"frunk-store/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Demo account credentials for manual testing.
const (
	DemoUsername = "demo"
	DemoPassword = "Demo1234"
)

const demoOrderID = "demo-order-0001"

// Apply inserts a demo account with one paid order. It is idempotent via ON
// CONFLICT and returns the demo user id.
func Apply(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	userID, err := ensureUser(ctx, pool, DemoUsername, DemoPassword)
	if err != nil {
		return "", fmt.Errorf("ensure demo user: %w", err)
	}
	if err := ensureOrder(ctx, pool, userID); err != nil {
		return "", fmt.Errorf("ensure demo order: %w", err)
	}
	return userID, nil
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	const q = `
INSERT INTO users (id, username, password_hash)
VALUES ($1, $2, $3)
ON CONFLICT ((lower(username))) DO UPDATE SET password_hash = EXCLUDED.password_hash
RETURNING id
`
	var id string
	if err := pool.QueryRow(ctx, q, uuid.NewString(), username, string(hash)).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func ensureOrder(ctx context.Context, pool *pgxpool.Pool, userID string) error {
	items, err := json.Marshal([]domain.OrderItem{{
		ProductID: "frunk-tshirt",
		VariantID: "tshirt-m-black",
		Name:      "Frunk T-Shirt",
		Size:      "M",
		Color:     "Black",
		Quantity:  1,
		Price:     2000,
	}})
	if err != nil {
		return err
	}
	addr, err := json.Marshal(domain.ShippingAddress{
		Name:     "Demo Driver",
		Address1: "1 Garage Lane",
		City:     "Springfield",
		State:    "IL",
		Zip:      "62701",
		Country:  "US",
	})
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (id, email, user_id, status, shipping_address, items, subtotal, shipping, total)
VALUES ($1, $2, $3, $4, $5, $6, 2000, 500, 2500)
ON CONFLICT (id) DO NOTHING
`
	_, err = pool.Exec(ctx, q, demoOrderID, "demo@example.com", userID, string(domain.OrderStatusPaid), addr, items)
	return err
}
