package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/domain/outbox"
	"github.com/goldshop/checkout/internal/gateway"
	"github.com/goldshop/checkout/internal/infrastructure/config"
	"github.com/goldshop/checkout/internal/pricing"
)

// RefundService reverses a charge through the gateway that processed it and
// reconciles the heterogeneous gateway answers into one result shape.
type RefundService struct {
	orderRepo  order.Repository
	outboxRepo outbox.Repository
	txManager  TransactionManager
	gateways   *gateway.Factory
	locker     Locker
	profits    *pricing.Calculator
	cfg        config.CheckoutConfig
	logger     zerolog.Logger
}

func NewRefundService(
	orderRepo order.Repository,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	gateways *gateway.Factory,
	locker Locker,
	profits *pricing.Calculator,
	cfg config.CheckoutConfig,
	logger zerolog.Logger,
) *RefundService {
	return &RefundService{
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		txManager:  txManager,
		gateways:   gateways,
		locker:     locker,
		profits:    profits,
		cfg:        cfg,
		logger:     logger,
	}
}

// RefundResult is the operator-facing outcome. Code doubles as the HTTP
// status of the response.
type RefundResult struct {
	Code      int        `json:"code"`
	Message   string     `json:"message"`
	ErrorCode string     `json:"error_code,omitempty"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
}

func genericRefundFailure() RefundResult {
	return RefundResult{Code: 500, Message: "Something went wrong"}
}

// Refund reverses the order's charge. Concurrent attempts against the same
// order are serialized on a distributed lock so two operators cannot both
// observe "not yet refunded" and both reach the gateway. Every failure mode
// maps to a result; the caller never sees an error.
func (s *RefundService) Refund(ctx context.Context, orderID, operatorID uuid.UUID) RefundResult {
	var result RefundResult
	err := s.locker.WithLock(ctx, "refund:"+orderID.String(), func(lockCtx context.Context) error {
		result = s.refund(lockCtx, orderID, operatorID)
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("refund lock not acquired")
		return genericRefundFailure()
	}
	return result
}

func (s *RefundService) refund(ctx context.Context, orderID, operatorID uuid.UUID) RefundResult {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("refund: load order failed")
		return genericRefundFailure()
	}

	o.ManagerID = &operatorID

	// Route by the provider that actually processed the charge, never by
	// the free-text method the buyer originally picked.
	gw, breaker, err := s.gateways.ForMethod(o.PaymentProvider)
	if err != nil {
		s.logger.Error().Err(err).Str("order", o.Number).Str("provider", o.PaymentProvider).
			Msg("refund: no gateway for stored provider")
		return genericRefundFailure()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RefundTimeout)
	defer cancel()

	raw, err := breaker.Execute(func() (any, error) {
		return gw.Refund(callCtx, o)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order", o.Number).Str("gateway", gw.Name()).
			Msg("refund call failed")
		return genericRefundFailure()
	}
	outcome := raw.(*gateway.RefundOutcome)

	switch outcome.Status {
	case gateway.RefundSuccess:
		if err := s.settleRefund(ctx, o); err != nil {
			s.logger.Error().Err(err).Str("order", o.Number).
				Msg("refund succeeded at gateway but order update failed")
			return genericRefundFailure()
		}
		return RefundResult{Code: 200, Message: "Refunded", UserID: o.BuyerID}
	case gateway.RefundFailed:
		return RefundResult{Code: 500, Message: outcome.Message, ErrorCode: outcome.Code}
	default:
		// Pending and error outcomes are not terminal. The order stays
		// untouched for a later reconciliation pass.
		return RefundResult{Code: 500, Message: outcome.Message}
	}
}

// settleRefund flips the order to Refunded and emits the domain notification
// in the same transaction, so subscribers never see a refund that was not
// durably recorded.
func (s *RefundService) settleRefund(ctx context.Context, o *order.Order) error {
	// The gateway-reported fee is in hand by now, so the commercial outcome
	// of the order can be finalized alongside the status flip.
	if o.Profit.IsZero() {
		profit, err := s.profits.Profit(pricing.ProfitInput{
			PaymentSum: o.Amount,
			Fee:        o.Fee,
			SellPrice:  o.Price,
			Quantity:   o.Quantity,
			Currency:   o.Currency,
			ProductID:  o.ProductID,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("order", o.Number).Msg("profit finalization skipped")
		} else {
			o.Profit = profit
		}
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := o.MarkRefunded(); err != nil {
			return err
		}
		if err := s.orderRepo.Update(txCtx, o); err != nil {
			return err
		}
		if err := s.orderRepo.AddStatusHistory(txCtx, o.NewStatusHistory()); err != nil {
			return err
		}
		entry := outbox.NewEntry("order", o.ID, "order.refunded", map[string]interface{}{
			"order_id":     o.ID.String(),
			"order_number": o.Number,
			"amount":       o.Amount.String(),
			"currency":     o.Currency,
			"buyer_email":  o.BuyerEmail,
		})
		return s.outboxRepo.Insert(txCtx, entry)
	})
}
