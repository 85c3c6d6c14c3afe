package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"frunk-store/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, email, user_id, payment_session_id, payment_intent_id, vendor_order_id, status,
       shipping_address, items, subtotal, shipping, total, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by the orders table.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	itemsJSON, err := json.Marshal(in.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	const shipping = 0
	total := in.Subtotal + shipping

	q := `
INSERT INTO orders (id, email, user_id, status, items, subtotal, shipping, total)
VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7)
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, in.ID, in.Email, in.UserID, itemsJSON, in.Subtotal, shipping, total))
	if err != nil {
		r.logger.Printf("order repo: create id=%s error=%v", in.ID, err)
		return nil, err
	}
	r.logger.Printf("order repo: created id=%s items=%d subtotal=%d", o.ID, len(o.Items), o.Subtotal)
	return o, nil
}

func (r *postgresRepo) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET payment_session_id = $2, updated_at = now()
WHERE id = $1
`, id, sessionID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetByPaymentSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE payment_session_id = $1`
	return scanOrder(r.pool.QueryRow(ctx, q, sessionID))
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyPayment records a confirmed payment. An order already past paid keeps
// its status so redelivered events cannot move it backwards.
func (r *postgresRepo) ApplyPayment(ctx context.Context, id string, upd PaymentUpdate) (*domain.Order, error) {
	var addrJSON []byte
	if upd.ShippingAddress != nil {
		b, err := json.Marshal(upd.ShippingAddress)
		if err != nil {
			return nil, fmt.Errorf("encode shipping address: %w", err)
		}
		addrJSON = b
	}
	var intentID *string
	if upd.PaymentIntentID != "" {
		intentID = &upd.PaymentIntentID
	}

	q := `
UPDATE orders
SET email = $2,
    status = CASE WHEN status IN ('pending', 'paid') THEN 'paid' ELSE status END,
    payment_intent_id = $3,
    shipping = $4,
    total = $5,
    shipping_address = $6,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id, upd.Email, intentID, upd.Shipping, upd.Total, addrJSON))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: apply payment id=%s error=%v", id, err)
		}
		return nil, err
	}
	r.logger.Printf("order repo: payment applied id=%s status=%s total=%d", o.ID, o.Status, o.Total)
	return o, nil
}

func (r *postgresRepo) ClaimFulfillment(ctx context.Context, id string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET fulfillment_claimed_at = now(), updated_at = now()
WHERE id = $1
  AND status = 'paid'
  AND vendor_order_id IS NULL
  AND (fulfillment_claimed_at IS NULL OR fulfillment_claimed_at < now() - make_interval(secs => $2))
`, id, ClaimTTL.Seconds())
	if err != nil {
		r.logger.Printf("order repo: claim fulfillment id=%s error=%v", id, err)
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresRepo) ReleaseFulfillment(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE orders
SET fulfillment_claimed_at = NULL, updated_at = now()
WHERE id = $1 AND vendor_order_id IS NULL
`, id)
	return err
}

func (r *postgresRepo) MarkProcessing(ctx context.Context, id, vendorOrderID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET vendor_order_id = $2, status = 'processing', updated_at = now()
WHERE id = $1
`, id, vendorOrderID)
	if err != nil {
		r.logger.Printf("order repo: mark processing id=%s error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o        domain.Order
		status   string
		addrJSON []byte
		items    []byte
	)
	err := row.Scan(
		&o.ID,
		&o.Email,
		&o.UserID,
		&o.PaymentSessionID,
		&o.PaymentIntentID,
		&o.VendorOrderID,
		&status,
		&addrJSON,
		&items,
		&o.Subtotal,
		&o.Shipping,
		&o.Total,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	if len(addrJSON) > 0 && string(addrJSON) != "null" {
		var addr domain.ShippingAddress
		if err := json.Unmarshal(addrJSON, &addr); err != nil {
			return nil, fmt.Errorf("decode shipping address id=%s: %w", o.ID, err)
		}
		o.ShippingAddress = &addr
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("decode items id=%s: %w", o.ID, err)
		}
	}
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
