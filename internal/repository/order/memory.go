package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"frunk-store/internal/domain"
)

type memoryRow struct {
	order     domain.Order
	claimedAt *time.Time
}

// Memory is an in-process Repository with the same semantics as the
// Postgres one. It backs unit tests and local runs without a database.
type Memory struct {
	mu   sync.Mutex
	rows map[string]*memoryRow
	now  func() time.Time
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{rows: make(map[string]*memoryRow), now: time.Now}
}

func (m *Memory) Create(_ context.Context, in CreateInput) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[in.ID]; exists {
		return nil, domain.ErrAlreadyExists
	}
	now := m.now().UTC()
	o := domain.Order{
		ID:        in.ID,
		Email:     in.Email,
		UserID:    cloneString(in.UserID),
		Status:    domain.OrderStatusPending,
		Items:     append([]domain.OrderItem(nil), in.Items...),
		Subtotal:  in.Subtotal,
		Shipping:  0,
		Total:     in.Subtotal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.rows[in.ID] = &memoryRow{order: o}
	return cloneOrder(o), nil
}

func (m *Memory) SetPaymentSession(_ context.Context, id, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	for otherID, other := range m.rows {
		if otherID != id && other.order.PaymentSessionID != nil && *other.order.PaymentSessionID == sessionID {
			return domain.ErrAlreadyExists
		}
	}
	row.order.PaymentSessionID = &sessionID
	row.order.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(row.order), nil
}

func (m *Memory) GetByPaymentSession(_ context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.order.PaymentSessionID != nil && *row.order.PaymentSessionID == sessionID {
			return cloneOrder(row.order), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, row := range m.rows {
		if row.order.UserID != nil && *row.order.UserID == userID {
			out = append(out, *cloneOrder(row.order))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ApplyPayment(_ context.Context, id string, upd PaymentUpdate) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o := &row.order
	o.Email = upd.Email
	if o.Status == domain.OrderStatusPending || o.Status == domain.OrderStatusPaid {
		o.Status = domain.OrderStatusPaid
	}
	o.PaymentIntentID = nil
	if upd.PaymentIntentID != "" {
		intent := upd.PaymentIntentID
		o.PaymentIntentID = &intent
	}
	o.Shipping = upd.Shipping
	o.Total = upd.Total
	o.ShippingAddress = nil
	if upd.ShippingAddress != nil {
		addr := *upd.ShippingAddress
		o.ShippingAddress = &addr
	}
	o.UpdatedAt = m.now().UTC()
	return cloneOrder(*o), nil
}

func (m *Memory) ClaimFulfillment(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	now := m.now()
	if row.order.Status != domain.OrderStatusPaid || row.order.VendorOrderID != nil {
		return false, nil
	}
	if row.claimedAt != nil && row.claimedAt.After(now.Add(-ClaimTTL)) {
		return false, nil
	}
	row.claimedAt = &now
	return true, nil
}

func (m *Memory) ReleaseFulfillment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok && row.order.VendorOrderID == nil {
		row.claimedAt = nil
	}
	return nil
}

func (m *Memory) MarkProcessing(_ context.Context, id, vendorOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.order.VendorOrderID = &vendorOrderID
	row.order.Status = domain.OrderStatusProcessing
	row.order.UpdatedAt = m.now().UTC()
	return nil
}

// Len reports the number of stored orders.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func cloneOrder(o domain.Order) *domain.Order {
	out := o
	out.UserID = cloneString(o.UserID)
	out.PaymentSessionID = cloneString(o.PaymentSessionID)
	out.PaymentIntentID = cloneString(o.PaymentIntentID)
	out.VendorOrderID = cloneString(o.VendorOrderID)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		out.ShippingAddress = &addr
	}
	out.Items = append([]domain.OrderItem(nil), o.Items...)
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
