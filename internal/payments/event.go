package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	"frunk-store/internal/domain"

	"github.com/stripe/stripe-go/v81"
)

type sessionPayload struct {
	ID              string            `json:"id"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntent   json.RawMessage   `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
	CustomerEmail   string            `json:"customer_email"`
	AmountTotal     int64             `json:"amount_total"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	ShippingCost *struct {
		AmountTotal int64 `json:"amount_total"`
	} `json:"shipping_cost"`
	ShippingDetails      *shippingDetails `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails *shippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
}

type shippingDetails struct {
	Name    string `json:"name"`
	Address *struct {
		Line1      string `json:"line1"`
		Line2      string `json:"line2"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country"`
	} `json:"address"`
}

func decodeEvent(evt stripe.Event) (*Event, error) {
	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || evt.Data == nil {
		return out, nil
	}
	cs, err := decodeSession(evt.Data.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s event %s: %w", out.Type, out.ID, err)
	}
	out.Session = cs
	return out, nil
}

func decodeSession(raw json.RawMessage) (*CheckoutSession, error) {
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	cs := &CheckoutSession{
		ID:              p.ID,
		PaymentStatus:   p.PaymentStatus,
		PaymentIntentID: expandableID(p.PaymentIntent),
		Metadata:        p.Metadata,
		CustomerEmail:   p.CustomerEmail,
		AmountTotal:     p.AmountTotal,
	}
	if p.CustomerDetails != nil && p.CustomerDetails.Email != "" {
		cs.CustomerEmail = p.CustomerDetails.Email
	}
	if p.ShippingCost != nil {
		cs.ShippingAmount = p.ShippingCost.AmountTotal
	}

	details := p.ShippingDetails
	if p.CollectedInformation != nil && p.CollectedInformation.ShippingDetails != nil {
		details = p.CollectedInformation.ShippingDetails
	}
	if details != nil && details.Address != nil {
		cs.ShippingAddress = &domain.ShippingAddress{
			Name:     details.Name,
			Address1: details.Address.Line1,
			Address2: details.Address.Line2,
			City:     details.Address.City,
			State:    details.Address.State,
			Zip:      details.Address.PostalCode,
			Country:  details.Address.Country,
		}
	}
	return cs, nil
}

// expandableID reads a field that is either an id string or an expanded object.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
