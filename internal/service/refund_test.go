package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldshop/checkout/internal/currency"
	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/gateway"
	"github.com/goldshop/checkout/internal/pricing"
	"github.com/goldshop/checkout/internal/testutil"
)

type refundFixture struct {
	svc       *RefundService
	orderRepo *testutil.MockOrderRepository
	outbox    *testutil.MockOutboxRepository
	locker    *testutil.MockLocker
	g2a       *gateway.MockGateway
	skrill    *gateway.MockGateway
}

func setupRefundService(gatewayOpts ...gateway.MockGatewayOption) *refundFixture {
	f := &refundFixture{
		orderRepo: testutil.NewMockOrderRepository(),
		outbox:    &testutil.MockOutboxRepository{},
		locker:    testutil.NewMockLocker(),
		g2a:       gateway.NewMockGateway(gateway.NameG2APay, gatewayOpts...),
		skrill:    gateway.NewMockGateway(gateway.NameSkrill, gatewayOpts...),
	}
	f.svc = NewRefundService(
		f.orderRepo,
		f.outbox,
		testutil.NewMockTransactionManager(),
		gateway.NewFactory(f.g2a, f.skrill),
		f.locker,
		pricing.NewCalculator(currency.NewStaticConverter(map[string]float64{"EUR": 1.08, "GBP": 1.26})),
		testCheckoutConfig(),
		zerolog.Nop(),
	)
	return f
}

func TestRefund_Success(t *testing.T) {
	f := setupRefundService()
	o := testutil.NewTestOrder("ORD1", gateway.NameG2APay, "10.00", "100", "USD")
	buyerID := uuid.New()
	o.BuyerID = &buyerID
	f.orderRepo.AddOrder(o)
	operatorID := uuid.New()

	result := f.svc.Refund(context.Background(), o.ID, operatorID)

	assert.Equal(t, 200, result.Code)
	assert.Equal(t, "Refunded", result.Message)
	require.NotNil(t, result.UserID)
	assert.Equal(t, buyerID, *result.UserID)
	assert.Empty(t, result.ErrorCode)

	stored := f.orderRepo.GetOrderByID(o.ID)
	assert.Equal(t, order.StatusRefunded, stored.Status)
	assert.Equal(t, order.PaymentRefunded, stored.PaymentStatus)
	require.NotNil(t, stored.ManagerID)
	assert.Equal(t, operatorID, *stored.ManagerID)
	assert.Len(t, f.orderRepo.StatusHistory(o.ID), 1)

	// Profit finalized from the stored snapshot: 10.00 minus 100 units at
	// 0.07 each plus the 0.02 product surcharge.
	assert.True(t, stored.Profit.Equal(decimal.RequireFromString("1.00")),
		"got profit %s", stored.Profit)

	entries := f.outbox.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "order.refunded", entries[0].EventType)
	assert.Equal(t, o.ID, entries[0].AggregateID)
}

func TestRefund_OrderNotFound(t *testing.T) {
	f := setupRefundService()

	result := f.svc.Refund(context.Background(), uuid.New(), uuid.New())

	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "Something went wrong", result.Message)
	assert.Nil(t, result.UserID)
}

// An order paid through the "BTC" method was processed by G2APay; the refund
// must route by the stored provider, not the free-text method.
func TestRefund_RoutesByStoredProvider(t *testing.T) {
	f := setupRefundService()
	o := testutil.NewTestOrder("ORD1", gateway.NameG2APay, "10.00", "100", "USD")
	o.Payment = "BTC"
	f.orderRepo.AddOrder(o)

	result := f.svc.Refund(context.Background(), o.ID, uuid.New())

	assert.Equal(t, 200, result.Code)
	assert.Equal(t, int64(1), f.g2a.RefundCalls())
	assert.Equal(t, int64(0), f.skrill.RefundCalls())
}

func TestRefund_GatewayReportsFailure(t *testing.T) {
	f := setupRefundService(gateway.WithRefundOutcome(&gateway.RefundOutcome{
		Status:  gateway.RefundFailed,
		Message: "merchant balance is not sufficient for the refund",
		Code:    "BALANCE_NOT_ENOUGH",
	}))
	o := testutil.NewTestOrder("ORD1", gateway.NameSkrill, "10.00", "100", "USD")
	f.orderRepo.AddOrder(o)

	result := f.svc.Refund(context.Background(), o.ID, uuid.New())

	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "merchant balance is not sufficient for the refund", result.Message)
	assert.Equal(t, "BALANCE_NOT_ENOUGH", result.ErrorCode)

	stored := f.orderRepo.GetOrderByID(o.ID)
	assert.Equal(t, order.StatusCreated, stored.Status, "a failed refund must not mutate order status")
	assert.Empty(t, f.outbox.Entries())
}

func TestRefund_PendingLeavesOrderUntouched(t *testing.T) {
	f := setupRefundService(gateway.WithRefundOutcome(&gateway.RefundOutcome{
		Status:  gateway.RefundPending,
		Message: "Order refunding is pending, please wait",
	}))
	o := testutil.NewTestOrder("ORD1", gateway.NameSkrill, "10.00", "100", "USD")
	f.orderRepo.AddOrder(o)

	result := f.svc.Refund(context.Background(), o.ID, uuid.New())

	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "Order refunding is pending, please wait", result.Message)
	assert.Empty(t, result.ErrorCode)
	assert.Equal(t, order.StatusCreated, f.orderRepo.GetOrderByID(o.ID).Status)
}

func TestRefund_GatewayErrorOutcome(t *testing.T) {
	f := setupRefundService(gateway.WithRefundOutcome(&gateway.RefundOutcome{
		Status:  gateway.RefundError,
		Message: "ALREADY_REFUNDED",
	}))
	o := testutil.NewTestOrder("ORD1", gateway.NameSkrill, "10.00", "100", "USD")
	f.orderRepo.AddOrder(o)

	result := f.svc.Refund(context.Background(), o.ID, uuid.New())

	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "ALREADY_REFUNDED", result.Message)
	assert.Equal(t, order.StatusCreated, f.orderRepo.GetOrderByID(o.ID).Status)
}

func TestRefund_TransportErrorNeverPanics(t *testing.T) {
	f := setupRefundService(gateway.WithRefundError(errors.New("connection reset")))
	o := testutil.NewTestOrder("ORD1", gateway.NameG2APay, "10.00", "100", "USD")
	f.orderRepo.AddOrder(o)

	result := f.svc.Refund(context.Background(), o.ID, uuid.New())

	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "Something went wrong", result.Message)
	assert.Equal(t, order.StatusCreated, f.orderRepo.GetOrderByID(o.ID).Status)
}

func TestRefund_UpdateFailureAfterGatewaySuccess(t *testing.T) {
	f := setupRefundService()
	o := testutil.NewTestOrder("ORD1", gateway.NameG2APay, "10.00", "100", "USD")
	f.orderRepo.AddOrder(o)
	f.orderRepo.UpdateFunc = func(ctx context.Context, o *order.Order) error {
		return errors.New("connection lost")
	}

	result := f.svc.Refund(context.Background(), o.ID, uuid.New())

	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "Something went wrong", result.Message)
}

func TestRefund_LockFailure(t *testing.T) {
	f := setupRefundService()
	o := testutil.NewTestOrder("ORD1", gateway.NameG2APay, "10.00", "100", "USD")
	f.orderRepo.AddOrder(o)
	f.locker.WithLockFunc = func(ctx context.Context, key string, fn func(ctx context.Context) error) error {
		return errors.New("lock held elsewhere")
	}

	result := f.svc.Refund(context.Background(), o.ID, uuid.New())

	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "Something went wrong", result.Message)
	assert.Equal(t, int64(0), f.g2a.RefundCalls())
}

// Two concurrent refunds of the same order are serialized by the lock; only
// the first one can flip the order to Refunded and reach the gateway with a
// refundable order.
func TestRefund_ConcurrentAttemptsYieldOneRefund(t *testing.T) {
	f := setupRefundService()
	o := testutil.NewTestOrder("ORD1", gateway.NameG2APay, "10.00", "100", "USD")
	f.orderRepo.AddOrder(o)

	const attempts = 5
	results := make([]RefundResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.Refund(context.Background(), o.ID, uuid.New())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Code == 200 {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.outbox.Entries(), 1)
}
