package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/infrastructure/config"
	"github.com/goldshop/checkout/internal/middleware"
	"github.com/goldshop/checkout/internal/service"
)

const sessionCookieName = "checkout_session"

type checkoutRunner interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResponse, error)
}

// CheckoutController drives the buyer-facing checkout flow. Every outcome is
// a redirect: success hands the buyer to the gateway, a missing email sends
// them to sign-in, anything else lands on the generic error page.
type CheckoutController struct {
	checkout checkoutRunner
	cfg      config.CheckoutConfig
	logger   zerolog.Logger
}

func NewCheckoutController(checkout checkoutRunner, cfg config.CheckoutConfig, logger zerolog.Logger) *CheckoutController {
	return &CheckoutController{checkout: checkout, cfg: cfg, logger: logger}
}

type checkoutForm struct {
	SessionID    string `validate:"required,max=128"`
	Method       string `validate:"omitempty,max=64"`
	DiscountCode string `validate:"omitempty,max=64"`
	Email        string `validate:"omitempty,email"`
}

// Checkout handles POST /checkout
func (h *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn().Err(err).Msg("checkout: malformed form")
		http.Redirect(w, r, h.cfg.ErrorURL, http.StatusFound)
		return
	}

	form := checkoutForm{
		SessionID:    h.sessionID(r),
		Method:       r.PostFormValue("method"),
		DiscountCode: r.PostFormValue("discount_code"),
		Email:        r.PostFormValue("email"),
	}
	if err := validateStruct(&form); err != nil {
		h.logger.Warn().Err(err).Msg("checkout: invalid form")
		http.Redirect(w, r, h.cfg.ErrorURL, http.StatusFound)
		return
	}

	resp, err := h.checkout.Checkout(r.Context(), service.CheckoutRequest{
		SessionID:    form.SessionID,
		Buyer:        h.buyerContext(r.Context()),
		Method:       form.Method,
		DiscountCode: form.DiscountCode,
		Email:        form.Email,
		IP:           r.RemoteAddr,
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrEmailRequired) {
			http.Redirect(w, r, h.cfg.SignInURL, http.StatusFound)
			return
		}
		// Internal detail stays in the log, never on the error page.
		h.logger.Error().Err(err).Str("session_id", form.SessionID).Msg("checkout failed")
		http.Redirect(w, r, h.cfg.ErrorURL, http.StatusFound)
		return
	}

	http.Redirect(w, r, resp.RedirectURL, http.StatusFound)
}

func (h *CheckoutController) sessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.PostFormValue("session_id")
}

func (h *CheckoutController) buyerContext(ctx context.Context) service.BuyerContext {
	claims, ok := middleware.GetClaims(ctx)
	if !ok {
		return service.BuyerContext{}
	}
	buyer := service.BuyerContext{
		Email:         claims.Email,
		Name:          claims.Name,
		Authenticated: true,
		Banned:        claims.Banned,
	}
	if id, err := uuid.Parse(claims.UserID); err == nil {
		buyer.UserID = &id
	}
	return buyer
}
