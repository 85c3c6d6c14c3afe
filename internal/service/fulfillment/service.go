package fulfillment

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"

	"frunk-store/internal/domain"
	"frunk-store/internal/printful"
	orderrepo "frunk-store/internal/repository/order"
)

// Vendor is the print-on-demand partner that produces and ships orders.
type Vendor interface {
	Configured() bool
	CreateOrder(ctx context.Context, req printful.OrderRequest) (string, error)
	ConfirmOrder(ctx context.Context, vendorOrderID string) error
}

// Outcome describes what Dispatch did with an order.
type Outcome string

const (
	OutcomeDispatched     Outcome = "dispatched"
	OutcomeNotConfigured  Outcome = "not_configured"
	OutcomeNoAddress      Outcome = "no_address"
	OutcomeNoItems        Outcome = "no_items"
	OutcomeAlreadyClaimed Outcome = "already_claimed"
)

// Service hands paid orders to the vendor.
type Service struct {
	orders orderrepo.Repository
	vendor Vendor
	logger *log.Logger
}

func New(orders orderrepo.Repository, vendor Vendor, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{orders: orders, vendor: vendor, logger: logger}
}

// Configured reports whether vendor credentials are present.
func (s *Service) Configured() bool {
	return s.vendor != nil && s.vendor.Configured()
}

// Dispatch creates and confirms a vendor order for a paid order, then marks it
// processing. At most one caller at a time gets past the fulfillment claim, so
// redelivered payment events do not create duplicate vendor orders. On error
// the order stays paid and the claim is released for a later retry.
func (s *Service) Dispatch(ctx context.Context, o domain.Order) (Outcome, error) {
	if !s.Configured() {
		return OutcomeNotConfigured, nil
	}
	if o.ShippingAddress == nil {
		s.logger.Printf("fulfillment: skip order=%s reason=no_address", o.ID)
		return OutcomeNoAddress, nil
	}

	items := s.vendorItems(o)
	if len(items) == 0 {
		s.logger.Printf("fulfillment: skip order=%s reason=no_fulfillable_items", o.ID)
		return OutcomeNoItems, nil
	}

	claimed, err := s.orders.ClaimFulfillment(ctx, o.ID)
	if err != nil {
		return "", fmt.Errorf("claim order %s: %w", o.ID, err)
	}
	if !claimed {
		s.logger.Printf("fulfillment: skip order=%s reason=already_claimed", o.ID)
		return OutcomeAlreadyClaimed, nil
	}

	vendorID, err := s.vendor.CreateOrder(ctx, printful.OrderRequest{
		ExternalID: o.ID,
		Recipient:  printful.RecipientFrom(*o.ShippingAddress, o.Email),
		Items:      items,
		Costs:      printful.Costs{Subtotal: o.Subtotal, Shipping: o.Shipping, Total: o.Total},
	})
	if err != nil {
		s.release(ctx, o.ID)
		return "", fmt.Errorf("create vendor order for %s: %w", o.ID, err)
	}

	if err := s.vendor.ConfirmOrder(ctx, vendorID); err != nil {
		s.release(ctx, o.ID)
		s.logger.Printf("fulfillment: vendor draft left unconfirmed order=%s vendor_order=%s", o.ID, vendorID)
		return "", fmt.Errorf("confirm vendor order %s: %w", vendorID, err)
	}

	if err := s.orders.MarkProcessing(ctx, o.ID, vendorID); err != nil {
		// The claim is kept: the vendor order exists and a retry would duplicate it.
		return "", fmt.Errorf("record vendor order %s on %s: %w", vendorID, o.ID, err)
	}
	s.logger.Printf("fulfillment: dispatched order=%s vendor_order=%s items=%d", o.ID, vendorID, len(items))
	return OutcomeDispatched, nil
}

func (s *Service) vendorItems(o domain.Order) []printful.Item {
	var out []printful.Item
	for _, it := range o.FulfillableItems() {
		id, err := strconv.ParseInt(it.VendorVariantID, 10, 64)
		if err != nil || id <= 0 {
			s.logger.Printf("fulfillment: order=%s variant=%s bad vendor variant id %q", o.ID, it.VariantID, it.VendorVariantID)
			continue
		}
		out = append(out, printful.Item{SyncVariantID: id, Quantity: it.Quantity})
	}
	return out
}

func (s *Service) release(ctx context.Context, orderID string) {
	if err := s.orders.ReleaseFulfillment(ctx, orderID); err != nil {
		s.logger.Printf("fulfillment: release claim order=%s err=%v", orderID, err)
	}
}
