package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"frunk-store/internal/domain"
	"frunk-store/internal/payments"
	"frunk-store/internal/printful"
	orderrepo "frunk-store/internal/repository/order"
	"frunk-store/internal/service/fulfillment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

const secret = "whsec_payment_test"

type stubVendor struct {
	configured bool
	err        error
	calls      int
}

func (v *stubVendor) Configured() bool { return v.configured }

func (v *stubVendor) CreateOrder(context.Context, printful.OrderRequest) (string, error) {
	v.calls++
	if v.err != nil {
		return "", v.err
	}
	return "pf-77", nil
}

func (v *stubVendor) ConfirmOrder(context.Context, string) error { return nil }

type fixture struct {
	repo   *orderrepo.Memory
	vendor *stubVendor
	svc    *Service
}

func newFixture(t *testing.T, vendor *stubVendor) fixture {
	t.Helper()
	repo := orderrepo.NewMemory()
	_, err := repo.Create(context.Background(), orderrepo.CreateInput{
		ID: "order-1",
		Items: []domain.OrderItem{{
			ProductID: "frunk-tshirt", VariantID: "tshirt-m-black", VendorVariantID: "4012345678",
			Name: "Frunk T-Shirt", Size: "M", Color: "Black", Quantity: 2, Price: 2000,
		}},
		Subtotal: 4000,
	})
	require.NoError(t, err)
	require.NoError(t, repo.SetPaymentSession(context.Background(), "order-1", "cs_test_1"))

	verifier := payments.NewStripe(payments.StripeConfig{WebhookSecret: secret}, nil)
	return fixture{
		repo:   repo,
		vendor: vendor,
		svc:    New(verifier, repo, fulfillment.New(repo, vendor, nil), nil),
	}
}

func sign(t *testing.T, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_" + eventType,
		"object":      "event",
		"type":        eventType,
		"api_version": "2024-06-20",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret, Timestamp: time.Now()})
	return signed.Payload, signed.Header
}

func paidSession(orderID string, withAddress bool) map[string]any {
	obj := map[string]any{
		"id":               "cs_test_1",
		"object":           "checkout.session",
		"payment_status":   "paid",
		"payment_intent":   "pi_123",
		"amount_total":     4500,
		"shipping_cost":    map[string]any{"amount_total": 500},
		"customer_details": map[string]any{"email": "ada@example.com"},
		"metadata":         map[string]any{"orderId": orderID, "type": "store_order"},
	}
	if withAddress {
		obj["shipping_details"] = map[string]any{
			"name": "Ada Lovelace",
			"address": map[string]any{
				"line1": "1 Main St", "city": "Springfield", "state": "IL", "postal_code": "62701", "country": "US",
			},
		}
	}
	return obj
}

func TestHandleWebhook_PaidThenProcessing(t *testing.T) {
	f := newFixture(t, &stubVendor{configured: true})
	payload, header := sign(t, payments.EventCheckoutSessionCompleted, paidSession("order-1", true))

	res, err := f.svc.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, res.Outcome)
	assert.Equal(t, fulfillment.OutcomeDispatched, res.Fulfillment)

	o, err := f.repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, o.Status)
	assert.Equal(t, int64(500), o.Shipping)
	assert.Equal(t, int64(4500), o.Total)
	assert.Equal(t, o.Subtotal+o.Shipping, o.Total)
	assert.Equal(t, "ada@example.com", o.Email)
	require.NotNil(t, o.PaymentIntentID)
	assert.Equal(t, "pi_123", *o.PaymentIntentID)
	require.NotNil(t, o.VendorOrderID)
	assert.Equal(t, "pf-77", *o.VendorOrderID)
	require.NotNil(t, o.ShippingAddress)
	assert.Equal(t, "62701", o.ShippingAddress.Zip)
}

func TestHandleWebhook_RedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, &stubVendor{configured: true})
	payload, header := sign(t, payments.EventCheckoutSessionCompleted, paidSession("order-1", true))

	_, err := f.svc.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	first, _ := f.repo.GetByID(context.Background(), "order-1")

	res, err := f.svc.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, res.Outcome)
	assert.Equal(t, fulfillment.OutcomeAlreadyClaimed, res.Fulfillment)
	assert.Equal(t, 1, f.vendor.calls, "vendor order created once")

	second, _ := f.repo.GetByID(context.Background(), "order-1")
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.PaymentIntentID, second.PaymentIntentID)
	assert.Equal(t, first.ShippingAddress, second.ShippingAddress)
	assert.Equal(t, first.VendorOrderID, second.VendorOrderID)
}

func TestHandleWebhook_FulfillmentFailureStillAcknowledges(t *testing.T) {
	f := newFixture(t, &stubVendor{configured: true, err: errors.Join(domain.ErrUpstream, errors.New("vendor down"))})
	payload, header := sign(t, payments.EventCheckoutSessionCompleted, paidSession("order-1", true))

	res, err := f.svc.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, res.Outcome)

	o, _ := f.repo.GetByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPaid, o.Status)
	assert.Nil(t, o.VendorOrderID)
}

func TestHandleWebhook_SkipsFulfillment(t *testing.T) {
	t.Run("vendor not configured", func(t *testing.T) {
		f := newFixture(t, &stubVendor{configured: false})
		payload, header := sign(t, payments.EventCheckoutSessionCompleted, paidSession("order-1", true))
		res, err := f.svc.HandleWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		assert.Equal(t, fulfillment.OutcomeNotConfigured, res.Fulfillment)
		o, _ := f.repo.GetByID(context.Background(), "order-1")
		assert.Equal(t, domain.OrderStatusPaid, o.Status)
	})

	t.Run("no address", func(t *testing.T) {
		f := newFixture(t, &stubVendor{configured: true})
		payload, header := sign(t, payments.EventCheckoutSessionCompleted, paidSession("order-1", false))
		res, err := f.svc.HandleWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		assert.Equal(t, fulfillment.OutcomeNoAddress, res.Fulfillment)
		assert.Zero(t, f.vendor.calls)
		o, _ := f.repo.GetByID(context.Background(), "order-1")
		assert.Nil(t, o.ShippingAddress)
	})
}

func TestHandleWebhook_IgnoredEvents(t *testing.T) {
	unpaid := paidSession("order-1", true)
	unpaid["payment_status"] = "unpaid"
	otherType := paidSession("order-1", true)
	otherType["metadata"] = map[string]any{"orderId": "order-1", "type": "subscription"}
	noOrderID := paidSession("", true)

	cases := []struct {
		name      string
		eventType string
		object    map[string]any
		want      Outcome
	}{
		{"unpaid session", payments.EventCheckoutSessionCompleted, unpaid, OutcomeIgnored},
		{"foreign session type", payments.EventCheckoutSessionCompleted, otherType, OutcomeIgnored},
		{"missing order id", payments.EventCheckoutSessionCompleted, noOrderID, OutcomeIgnored},
		{"unknown order", payments.EventCheckoutSessionCompleted, paidSession("ghost", true), OutcomeOrderNotFound},
		{"payment failed", payments.EventPaymentIntentFailed, map[string]any{"id": "pi_1", "object": "payment_intent"}, OutcomePaymentFailed},
		{"unhandled", "customer.created", map[string]any{"id": "cus_1", "object": "customer"}, OutcomeIgnored},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, &stubVendor{configured: true})
			payload, header := sign(t, tc.eventType, tc.object)
			res, err := f.svc.HandleWebhook(context.Background(), payload, header)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Outcome)

			o, _ := f.repo.GetByID(context.Background(), "order-1")
			assert.Equal(t, domain.OrderStatusPending, o.Status)
			assert.Zero(t, f.vendor.calls)
		})
	}
}

func TestHandleWebhook_InvalidSignatureMutatesNothing(t *testing.T) {
	f := newFixture(t, &stubVendor{configured: true})
	payload, _ := sign(t, payments.EventCheckoutSessionCompleted, paidSession("order-1", true))

	_, err := f.svc.HandleWebhook(context.Background(), payload, "t=123,v1=forged")
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	o, _ := f.repo.GetByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Nil(t, o.PaymentIntentID)

	_, err = New(nil, f.repo, nil, nil).HandleWebhook(context.Background(), payload, "x")
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestHandleWebhook_ZeroAmountFallsBackToSubtotalPlusShipping(t *testing.T) {
	f := newFixture(t, &stubVendor{configured: false})
	obj := paidSession("order-1", true)
	obj["amount_total"] = 0
	payload, header := sign(t, payments.EventCheckoutSessionCompleted, obj)

	_, err := f.svc.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	o, _ := f.repo.GetByID(context.Background(), "order-1")
	assert.Equal(t, int64(4500), o.Total)
}

func TestConfirmation(t *testing.T) {
	f := newFixture(t, &stubVendor{configured: false})
	ctx := context.Background()

	_, err := f.svc.Confirmation(ctx, "cs_test_1")
	require.ErrorIs(t, err, ErrPaymentIncomplete)
	_, err = f.svc.Confirmation(ctx, "")
	require.ErrorIs(t, err, domain.ErrInvalid)
	_, err = f.svc.Confirmation(ctx, "cs_missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	payload, header := sign(t, payments.EventCheckoutSessionCompleted, paidSession("order-1", true))
	_, err = f.svc.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)

	c, err := f.svc.Confirmation(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", c.OrderNumber)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, int64(4500), c.Total)
	require.Len(t, c.Items, 1)
	assert.Equal(t, ConfirmationItem{Name: "Frunk T-Shirt", Size: "M", Color: "Black", Quantity: 2, Price: 2000}, c.Items[0])
	require.NotNil(t, c.ShippingAddress)
	assert.Equal(t, "Ada Lovelace", c.ShippingAddress.Name)
}

func stripeSessionAPI(t *testing.T, session map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/v1/checkout/sessions/cs_test_1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`))
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(session))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConfirmation_PaidSessionBeforeWebhook(t *testing.T) {
	f := newFixture(t, &stubVendor{configured: true})
	api := stripeSessionAPI(t, paidSession("order-1", true))
	gateway := payments.NewStripe(payments.StripeConfig{SecretKey: "sk_test_1", WebhookSecret: secret, BaseURL: api.URL}, nil)
	svc := New(gateway, f.repo, fulfillment.New(f.repo, f.vendor, nil), nil)

	c, err := svc.Confirmation(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", c.OrderNumber)
	assert.Equal(t, domain.OrderStatusPaid, c.Status)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, int64(4000), c.Subtotal)
	assert.Equal(t, int64(500), c.Shipping)
	assert.Equal(t, int64(4500), c.Total)
	require.NotNil(t, c.ShippingAddress)
	assert.Equal(t, "Springfield", c.ShippingAddress.City)
	require.Len(t, c.Items, 1)

	o, err := f.repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o.Status, "the webhook stays the only writer")
	assert.Zero(t, f.vendor.calls)
}

func TestConfirmation_UnpaidSessionBeforeWebhook(t *testing.T) {
	f := newFixture(t, &stubVendor{})
	unpaid := paidSession("order-1", false)
	unpaid["payment_status"] = "unpaid"
	api := stripeSessionAPI(t, unpaid)
	gateway := payments.NewStripe(payments.StripeConfig{SecretKey: "sk_test_1", BaseURL: api.URL}, nil)
	svc := New(gateway, f.repo, nil, nil)

	_, err := svc.Confirmation(context.Background(), "cs_test_1")
	require.ErrorIs(t, err, ErrPaymentIncomplete)
}

func TestConfirmation_SessionForAnotherOrder(t *testing.T) {
	f := newFixture(t, &stubVendor{})
	api := stripeSessionAPI(t, paidSession("order-2", false))
	gateway := payments.NewStripe(payments.StripeConfig{SecretKey: "sk_test_1", BaseURL: api.URL}, nil)
	svc := New(gateway, f.repo, nil, nil)

	_, err := svc.Confirmation(context.Background(), "cs_test_1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
