package domain

import "time"

// OrderStatus is the lifecycle state of a store order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Settled reports whether payment has been confirmed for an order in this state.
func (s OrderStatus) Settled() bool {
	return s != OrderStatusPending && s != OrderStatusCancelled && s.Valid()
}

// ShippingAddress is the recipient collected by the hosted checkout page.
type ShippingAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// OrderItem is a line item denormalized at purchase time.
type OrderItem struct {
	ProductID       string `json:"productId"`
	VariantID       string `json:"variantId"`
	VendorVariantID string `json:"vendorVariantId"`
	Name            string `json:"name"`
	Size            string `json:"size"`
	Color           string `json:"color"`
	Quantity        int    `json:"quantity"`
	Price           int64  `json:"price"`
}

// Order is a persisted store purchase. Amounts are in cents.
type Order struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	UserID           *string          `json:"userId,omitempty"`
	PaymentSessionID *string          `json:"paymentSessionId,omitempty"`
	PaymentIntentID  *string          `json:"paymentIntentId,omitempty"`
	VendorOrderID    *string          `json:"vendorOrderId,omitempty"`
	Status           OrderStatus      `json:"status"`
	ShippingAddress  *ShippingAddress `json:"shippingAddress,omitempty"`
	Items            []OrderItem      `json:"items"`
	Subtotal         int64            `json:"subtotal"`
	Shipping         int64            `json:"shipping"`
	Total            int64            `json:"total"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// FulfillableItems returns the items that carry a vendor variant id.
func (o Order) FulfillableItems() []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if it.VendorVariantID != "" {
			out = append(out, it)
		}
	}
	return out
}
