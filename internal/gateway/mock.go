package gateway

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goldshop/checkout/internal/domain/order"
)

// MockGateway is a configurable in-memory gateway used by service and
// controller tests.
type MockGateway struct {
	name        string
	latency     time.Duration
	checkoutErr error
	refundErr   error
	redirectURL string
	outcome     *RefundOutcome

	checkoutCalls atomic.Int64
	refundCalls   atomic.Int64
}

type MockGatewayOption func(*MockGateway)

func WithMockLatency(d time.Duration) MockGatewayOption {
	return func(g *MockGateway) { g.latency = d }
}

func WithCheckoutError(err error) MockGatewayOption {
	return func(g *MockGateway) { g.checkoutErr = err }
}

func WithRefundError(err error) MockGatewayOption {
	return func(g *MockGateway) { g.refundErr = err }
}

func WithRedirectURL(u string) MockGatewayOption {
	return func(g *MockGateway) { g.redirectURL = u }
}

func WithRefundOutcome(o *RefundOutcome) MockGatewayOption {
	return func(g *MockGateway) { g.outcome = o }
}

func NewMockGateway(name string, opts ...MockGatewayOption) *MockGateway {
	g := &MockGateway{
		name:        name,
		redirectURL: "https://pay.example.test/session",
		outcome:     &RefundOutcome{Status: RefundSuccess, Message: "Order has been successfully refunded", Code: "200"},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) Name() string { return g.name }

func (g *MockGateway) InitiateCheckout(ctx context.Context, _ *order.Order) (*CheckoutResult, error) {
	g.checkoutCalls.Add(1)
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.checkoutErr != nil {
		return nil, g.checkoutErr
	}
	return &CheckoutResult{RedirectURL: g.redirectURL}, nil
}

func (g *MockGateway) Refund(ctx context.Context, _ *order.Order) (*RefundOutcome, error) {
	g.refundCalls.Add(1)
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	out := *g.outcome
	return &out, nil
}

func (g *MockGateway) CheckoutCalls() int64 { return g.checkoutCalls.Load() }
func (g *MockGateway) RefundCalls() int64   { return g.refundCalls.Load() }

func (g *MockGateway) wait(ctx context.Context) error {
	if g.latency == 0 {
		return nil
	}
	select {
	case <-time.After(g.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
