package gateway

import (
	"context"

	"github.com/goldshop/checkout/internal/domain/order"
)

// RefundStatus is the canonical status vocabulary every gateway's refund
// protocol is normalized into.
type RefundStatus string

const (
	RefundSuccess RefundStatus = "success"
	RefundPending RefundStatus = "pending"
	RefundFailed  RefundStatus = "failed"
	RefundError   RefundStatus = "error"
)

// RefundOutcome is the normalized result of a refund attempt.
type RefundOutcome struct {
	Status  RefundStatus
	Message string
	Code    string
}

// CheckoutResult carries the opaque redirect target the buyer must be sent to.
type CheckoutResult struct {
	RedirectURL string
}

// Gateway is the capability contract implemented by every payment gateway.
// Transport failures, non-200 responses and malformed payloads are returned
// as errors; explicit business outcomes (failed, pending) come back as a
// RefundOutcome with a nil error.
type Gateway interface {
	// Name returns the stable gateway display name, persisted onto the
	// order for later refund routing.
	Name() string

	// InitiateCheckout builds a signed, gateway-specific request and
	// returns the redirect target on success.
	InitiateCheckout(ctx context.Context, o *order.Order) (*CheckoutResult, error)

	// Refund runs the gateway's refund protocol against the order's stored
	// transaction identifiers and returns the normalized outcome.
	Refund(ctx context.Context, o *order.Order) (*RefundOutcome, error)
}
