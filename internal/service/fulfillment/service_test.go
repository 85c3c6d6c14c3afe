package fulfillment

import (
	"context"
	"errors"
	"testing"

	"frunk-store/internal/domain"
	"frunk-store/internal/printful"
	orderrepo "frunk-store/internal/repository/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVendor struct {
	configured bool
	createErr  error
	confirmErr error
	created    []printful.OrderRequest
	confirmed  []string
}

func (v *stubVendor) Configured() bool { return v.configured }

func (v *stubVendor) CreateOrder(_ context.Context, req printful.OrderRequest) (string, error) {
	if v.createErr != nil {
		return "", v.createErr
	}
	v.created = append(v.created, req)
	return "pf-1001", nil
}

func (v *stubVendor) ConfirmOrder(_ context.Context, id string) error {
	if v.confirmErr != nil {
		return v.confirmErr
	}
	v.confirmed = append(v.confirmed, id)
	return nil
}

var testAddress = &domain.ShippingAddress{
	Name: "Ada", Address1: "1 Main", City: "Springfield", State: "IL", Zip: "62701", Country: "US",
}

func paidOrder(t *testing.T, repo *orderrepo.Memory, items []domain.OrderItem, addr *domain.ShippingAddress) domain.Order {
	t.Helper()
	ctx := context.Background()
	_, err := repo.Create(ctx, orderrepo.CreateInput{ID: "order-1", Items: items, Subtotal: 4000})
	require.NoError(t, err)
	o, err := repo.ApplyPayment(ctx, "order-1", orderrepo.PaymentUpdate{
		Email: "ada@example.com", PaymentIntentID: "pi_1", Shipping: 500, Total: 4500, ShippingAddress: addr,
	})
	require.NoError(t, err)
	return *o
}

func syncedItems() []domain.OrderItem {
	return []domain.OrderItem{
		{ProductID: "frunk-tshirt", VariantID: "tshirt-m-black", VendorVariantID: "4012345678", Quantity: 2, Price: 2000},
		{ProductID: "sticker", VariantID: "sticker-default", Quantity: 1, Price: 0},
	}
}

func TestDispatch_Success(t *testing.T) {
	ctx := context.Background()
	repo := orderrepo.NewMemory()
	vendor := &stubVendor{configured: true}
	svc := New(repo, vendor, nil)

	o := paidOrder(t, repo, syncedItems(), testAddress)
	outcome, err := svc.Dispatch(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome)

	require.Len(t, vendor.created, 1)
	req := vendor.created[0]
	assert.Equal(t, "order-1", req.ExternalID)
	assert.Equal(t, []printful.Item{{SyncVariantID: 4012345678, Quantity: 2}}, req.Items)
	assert.Equal(t, printful.Costs{Subtotal: 4000, Shipping: 500, Total: 4500}, req.Costs)
	assert.Equal(t, "ada@example.com", req.Recipient.Email)
	assert.Equal(t, "IL", req.Recipient.StateCode)
	assert.Equal(t, []string{"pf-1001"}, vendor.confirmed)

	stored, err := repo.GetByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
	require.NotNil(t, stored.VendorOrderID)
	assert.Equal(t, "pf-1001", *stored.VendorOrderID)
}

func TestDispatch_RedeliveryDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := orderrepo.NewMemory()
	vendor := &stubVendor{configured: true}
	svc := New(repo, vendor, nil)

	o := paidOrder(t, repo, syncedItems(), testAddress)
	_, err := svc.Dispatch(ctx, o)
	require.NoError(t, err)

	outcome, err := svc.Dispatch(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyClaimed, outcome)
	assert.Len(t, vendor.created, 1)
}

func TestDispatch_Skips(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		repo := orderrepo.NewMemory()
		vendor := &stubVendor{configured: false}
		outcome, err := New(repo, vendor, nil).Dispatch(ctx, paidOrder(t, repo, syncedItems(), testAddress))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotConfigured, outcome)
		assert.Empty(t, vendor.created)

		outcome, err = New(repo, nil, nil).Dispatch(ctx, domain.Order{ID: "order-1"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotConfigured, outcome)
	})

	t.Run("no address", func(t *testing.T) {
		repo := orderrepo.NewMemory()
		vendor := &stubVendor{configured: true}
		outcome, err := New(repo, vendor, nil).Dispatch(ctx, paidOrder(t, repo, syncedItems(), nil))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoAddress, outcome)
		assert.Empty(t, vendor.created)
	})

	t.Run("no fulfillable items", func(t *testing.T) {
		repo := orderrepo.NewMemory()
		vendor := &stubVendor{configured: true}
		items := []domain.OrderItem{
			{ProductID: "frunk-tshirt", VariantID: "tshirt-m-black", Quantity: 2, Price: 2000},
			{ProductID: "garage-mug", VariantID: "garage-mug-11oz-white", VendorVariantID: "not-a-number", Quantity: 1},
		}
		outcome, err := New(repo, vendor, nil).Dispatch(ctx, paidOrder(t, repo, items, testAddress))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoItems, outcome)
		assert.Empty(t, vendor.created)

		stored, err := repo.GetByID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPaid, stored.Status)
		assert.Nil(t, stored.VendorOrderID)
	})
}

func TestDispatch_VendorFailureKeepsOrderPaidAndReleasesClaim(t *testing.T) {
	ctx := context.Background()
	for name, vendor := range map[string]*stubVendor{
		"create fails":  {configured: true, createErr: errors.Join(domain.ErrUpstream, errors.New("bad recipient"))},
		"confirm fails": {configured: true, confirmErr: errors.Join(domain.ErrUpstream, errors.New("timeout"))},
	} {
		t.Run(name, func(t *testing.T) {
			repo := orderrepo.NewMemory()
			svc := New(repo, vendor, nil)
			o := paidOrder(t, repo, syncedItems(), testAddress)

			_, err := svc.Dispatch(ctx, o)
			require.ErrorIs(t, err, domain.ErrUpstream)

			stored, err := repo.GetByID(ctx, "order-1")
			require.NoError(t, err)
			assert.Equal(t, domain.OrderStatusPaid, stored.Status)
			assert.Nil(t, stored.VendorOrderID)

			claimed, err := repo.ClaimFulfillment(ctx, "order-1")
			require.NoError(t, err)
			assert.True(t, claimed, "claim should be released for retry")
		})
	}
}
