package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/goldshop/checkout/internal/currency"
	"github.com/goldshop/checkout/internal/domain/discount"
	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/gateway"
	"github.com/goldshop/checkout/internal/geo"
	"github.com/goldshop/checkout/internal/infrastructure/config"
)

// CheckoutService builds the immutable order snapshot from the session's
// pricing context and hands the buyer off to the selected gateway.
type CheckoutService struct {
	orderRepo    order.Repository
	discountRepo discount.Repository
	blacklist    BlacklistRepository
	sessions     SessionStore
	geo          geo.Resolver
	converter    currency.Converter
	numbers      NumberSource
	gateways     *gateway.Factory
	txManager    TransactionManager
	cfg          config.CheckoutConfig
	logger       zerolog.Logger
}

func NewCheckoutService(
	orderRepo order.Repository,
	discountRepo discount.Repository,
	blacklist BlacklistRepository,
	sessions SessionStore,
	geoResolver geo.Resolver,
	converter currency.Converter,
	numbers NumberSource,
	gateways *gateway.Factory,
	txManager TransactionManager,
	cfg config.CheckoutConfig,
	logger zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orderRepo:    orderRepo,
		discountRepo: discountRepo,
		blacklist:    blacklist,
		sessions:     sessions,
		geo:          geoResolver,
		converter:    converter,
		numbers:      numbers,
		gateways:     gateways,
		txManager:    txManager,
		cfg:          cfg,
		logger:       logger,
	}
}

// BuyerContext identifies the buyer placing the order. Guests have no user id.
type BuyerContext struct {
	UserID        *uuid.UUID
	Email         string
	Name          string
	Authenticated bool
	Banned        bool
}

// CheckoutRequest holds the client-supplied part of a checkout. Prices and
// quantities come from the session's pricing context, never from here.
type CheckoutRequest struct {
	SessionID    string
	Buyer        BuyerContext
	Method       string
	DiscountCode string
	Email        string
	IP           string
}

// CheckoutResponse carries the gateway handoff target.
type CheckoutResponse struct {
	Order       *order.Order
	RedirectURL string
}

// Checkout runs the full pricing/discount computation, persists the order
// and initiates payment with the gateway selected for the chosen method.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	pc, err := s.sessions.GetPricingContext(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrPricingNotFound, err)
	}

	method := req.Method
	if method == "" {
		method = s.cfg.DefaultMethod
	}

	email := s.resolveEmail(req, pc)
	if email == "" {
		return nil, domainErrors.ErrEmailRequired
	}

	// Remember the buyer's choices so a retried checkout resumes where it
	// left off. Session write failure never blocks the payment.
	pc.PaymentType = method
	pc.DiscountCode = req.DiscountCode
	pc.UserEmail = email
	if err := s.sessions.SavePricingContext(ctx, req.SessionID, pc); err != nil {
		s.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to save pricing context")
	}

	location := s.resolveLocation(ctx, req.IP)

	initialQty := pc.Quantity
	quantity := initialQty
	if s.isSurchargeMethod(method) {
		quantity = quantity.Mul(decimal.NewFromFloat(1 - s.cfg.SurchargeRate))
	}

	// A code that simply does not exist is ignored: the buyer typed it, it
	// buys nothing, the purchase still goes through. Only a lookup failure
	// aborts, since then a real code may have been denied its bonus.
	var discountCode *discount.Code
	if req.DiscountCode != "" {
		discountCode, err = s.discountRepo.GetByCode(ctx, req.DiscountCode)
		switch {
		case errors.Is(err, domainErrors.ErrDiscountNotFound):
			s.logger.Warn().Str("code", req.DiscountCode).Msg("unknown discount code ignored")
			discountCode = nil
		case err != nil:
			return nil, fmt.Errorf("resolve discount %q: %w", req.DiscountCode, err)
		default:
			quantity = quantity.Add(discountCode.BonusQuantity(initialQty))
		}
	}

	gw, breaker, err := s.gateways.ForMethod(method)
	if err != nil {
		return nil, err
	}

	usdAmount, err := s.converter.ConvertToUSD(pc.Currency, pc.OrderPrice)
	if err != nil {
		return nil, fmt.Errorf("convert order amount: %w", err)
	}

	number, err := s.numbers.Next()
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}

	now := time.Now()
	o := &order.Order{
		ID:              uuid.New(),
		Number:          number,
		ProductID:       pc.ProductID,
		ProductTitle:    pc.ProductTitle,
		ProductURL:      pc.ProductURL,
		Amount:          pc.OrderPrice,
		Price:           pc.ProductPrice,
		Quantity:        quantity,
		Currency:        pc.Currency,
		USDAmount:       usdAmount,
		BuyerEmail:      email,
		BuyerName:       req.Buyer.Name,
		Nick:            pc.Nick,
		Payment:         method,
		PaymentProvider: gw.Name(),
		Status:          order.StatusCreated,
		PaymentStatus:   order.PaymentCreated,
		Fee:             decimal.Zero,
		Profit:          decimal.Zero,
		IP:              req.IP,
		City:            location.City,
		Country:         location.Country,
		Risk:            location.Risk,
		IPUserType:      location.UserType,
		IPPostalCode:    location.PostalCode,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Buyer.Authenticated {
		o.BuyerID = req.Buyer.UserID
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, o); err != nil {
			return err
		}
		return s.orderRepo.AddStatusHistory(txCtx, o.NewStatusHistory())
	})
	if err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if req.Buyer.Banned {
		if err := s.blacklist.AddOrder(ctx, o, "buyer account flagged"); err != nil {
			s.logger.Warn().Err(err).Str("order", o.Number).Msg("failed to blacklist order")
		}
	}

	// The link row marks the code as consumed by this order. Idempotent on
	// (discount_id, order_id); failure here must not lose the payment.
	if discountCode != nil {
		if err := s.discountRepo.LinkToOrder(ctx, discountCode.ID, o.ID); err != nil {
			s.logger.Error().Err(err).
				Str("order", o.Number).
				Str("discount_code", discountCode.Code).
				Msg("failed to link discount to order")
		}
	}

	result, err := breaker.Execute(func() (any, error) {
		return gw.InitiateCheckout(ctx, o)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order", o.Number).Str("gateway", gw.Name()).
			Msg("checkout initiation failed")
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrPaymentInitFailed, err)
	}

	return &CheckoutResponse{Order: o, RedirectURL: result.(*gateway.CheckoutResult).RedirectURL}, nil
}

// resolveEmail picks the buyer email: the authenticated account's email
// wins, then the request-supplied one, then the one stored on the session.
func (s *CheckoutService) resolveEmail(req CheckoutRequest, pc *PricingContext) string {
	if req.Buyer.Authenticated && req.Buyer.Email != "" {
		return req.Buyer.Email
	}
	if req.Email != "" {
		return req.Email
	}
	return pc.UserEmail
}

func (s *CheckoutService) resolveLocation(ctx context.Context, ip string) *geo.Location {
	location, err := s.geo.Resolve(ctx, ip)
	if err != nil {
		s.logger.Warn().Err(err).Str("ip", ip).Msg("geo lookup failed")
		return &geo.Location{}
	}
	return location
}

func (s *CheckoutService) isSurchargeMethod(method string) bool {
	for _, m := range s.cfg.SurchargeMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
