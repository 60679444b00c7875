package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
)

// Status is the business lifecycle of an order.
type Status string

const (
	StatusCreated   Status = "Created"
	StatusDelivered Status = "Delivered"
	StatusRefunded  Status = "Refunded"
	StatusBlocked   Status = "Blocked"
)

// PaymentStatus is the gateway-facing status vocabulary. It moves
// independently of the business Status.
type PaymentStatus string

const (
	PaymentCreated          PaymentStatus = "created"
	PaymentComplete         PaymentStatus = "complete"
	PaymentPending          PaymentStatus = "pending"
	PaymentRefunded         PaymentStatus = "refunded"
	PaymentRejected         PaymentStatus = "rejected"
	PaymentNew              PaymentStatus = "new"
	PaymentDispute          PaymentStatus = "dispute"
	PaymentChargeback       PaymentStatus = "chargeback"
	PaymentReversed         PaymentStatus = "reversed"
	PaymentCanceledReversal PaymentStatus = "canceled_reversal"
	PaymentComplaint        PaymentStatus = "complaint"
	PaymentFailed           PaymentStatus = "failed"
	PaymentUnknown          PaymentStatus = "unknown"
	PaymentBlocked          PaymentStatus = "blocked"
)

// Order is the immutable snapshot of a purchase's commercial terms at the
// moment of checkout. Only status, refund and settlement fields change after
// creation; the monetary snapshot (amount, price, quantity, usd_amount) is
// frozen.
type Order struct {
	ID     uuid.UUID
	Number string

	ProductID    int64
	ProductTitle string
	ProductURL   string

	Amount    decimal.Decimal // gross charge, gateway-facing
	Price     decimal.Decimal // unit price
	Quantity  decimal.Decimal // may be fractional after discount/fee adjustments
	Currency  string
	USDAmount decimal.Decimal // converted once at creation, never recomputed

	BuyerID    *uuid.UUID // nil for guests
	BuyerEmail string
	BuyerName  string
	Nick       string

	Payment         string // raw buyer-supplied method identifier
	PaymentProvider string // resolved gateway name, used for refund routing
	SaleID          string
	TransactionID   string

	Status        Status
	PaymentStatus PaymentStatus

	Fee    decimal.Decimal
	Profit decimal.Decimal

	ManagerID *uuid.UUID

	IP           string
	City         string
	Country      string
	Risk         string
	IPUserType   string
	IPPostalCode string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusHistory is an audit row appended every time the business status changes.
type StatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    Status
	CreatedAt time.Time
}

// Validate checks the monetary invariants of the snapshot.
func (o *Order) Validate() error {
	if o.Amount.IsNegative() || o.Price.IsNegative() || o.Quantity.IsNegative() {
		return domainErrors.ErrInvalidAmount
	}
	if len(o.Currency) != 3 {
		return domainErrors.ErrInvalidCurrency
	}
	if o.BuyerEmail == "" {
		return domainErrors.ErrEmailRequired
	}
	return nil
}

// CanTransitionTo checks if the order can move to the given business status.
func (o *Order) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusCreated:   {StatusDelivered, StatusRefunded, StatusBlocked},
		StatusDelivered: {StatusRefunded},
		StatusRefunded:  {}, // Terminal state
		StatusBlocked:   {StatusDelivered, StatusRefunded},
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to a new business status.
func (o *Order) TransitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return domainErrors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(newStatus),
			domainErrors.ErrInvalidStateTransition,
		)
	}
	o.Status = newStatus
	o.UpdatedAt = time.Now()
	return nil
}

// MarkRefunded moves the order to Refunded and aligns the gateway-facing status.
func (o *Order) MarkRefunded() error {
	if err := o.TransitionTo(StatusRefunded); err != nil {
		return err
	}
	o.PaymentStatus = PaymentRefunded
	return nil
}

// MarkDelivered moves the order to Delivered.
func (o *Order) MarkDelivered() error {
	return o.TransitionTo(StatusDelivered)
}

// NewStatusHistory builds an audit row for the order's current status.
func (o *Order) NewStatusHistory() *StatusHistory {
	return &StatusHistory{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Status:    o.Status,
		CreatedAt: time.Now(),
	}
}
