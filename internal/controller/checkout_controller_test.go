package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/infrastructure/config"
	"github.com/goldshop/checkout/internal/middleware"
	"github.com/goldshop/checkout/internal/service"
)

type stubCheckout struct {
	gotReq service.CheckoutRequest
	resp   *service.CheckoutResponse
	err    error
}

func (s *stubCheckout) Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResponse, error) {
	s.gotReq = req
	return s.resp, s.err
}

func checkoutTestConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		ErrorURL:  "https://shop.example.test/error",
		SignInURL: "https://shop.example.test/signin",
	}
}

func postCheckout(h *CheckoutController, form url.Values, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	h.Checkout(rec, req)
	return rec
}

func TestCheckoutHandler_RedirectsToGateway(t *testing.T) {
	stub := &stubCheckout{resp: &service.CheckoutResponse{RedirectURL: "https://pay.example.test/?sid=1"}}
	h := NewCheckoutController(stub, checkoutTestConfig(), zerolog.Nop())

	form := url.Values{}
	form.Set("session_id", "s1")
	form.Set("method", "PSC")
	form.Set("discount_code", "TEN")
	rec := postCheckout(h, form)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://pay.example.test/?sid=1", rec.Header().Get("Location"))
	assert.Equal(t, "s1", stub.gotReq.SessionID)
	assert.Equal(t, "PSC", stub.gotReq.Method)
	assert.Equal(t, "TEN", stub.gotReq.DiscountCode)
}

func TestCheckoutHandler_SessionFromCookie(t *testing.T) {
	stub := &stubCheckout{resp: &service.CheckoutResponse{RedirectURL: "https://pay.example.test/"}}
	h := NewCheckoutController(stub, checkoutTestConfig(), zerolog.Nop())

	form := url.Values{}
	form.Set("method", "G2APay")
	rec := postCheckout(h, form, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-session"})
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "cookie-session", stub.gotReq.SessionID)
}

func TestCheckoutHandler_EmailRequiredRedirectsToSignIn(t *testing.T) {
	stub := &stubCheckout{err: domainErrors.ErrEmailRequired}
	h := NewCheckoutController(stub, checkoutTestConfig(), zerolog.Nop())

	form := url.Values{}
	form.Set("session_id", "s1")
	rec := postCheckout(h, form)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.test/signin", rec.Header().Get("Location"))
}

func TestCheckoutHandler_FailureRedirectsToErrorPage(t *testing.T) {
	stub := &stubCheckout{err: errors.New("pq: connection refused")}
	h := NewCheckoutController(stub, checkoutTestConfig(), zerolog.Nop())

	form := url.Values{}
	form.Set("session_id", "s1")
	rec := postCheckout(h, form)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.test/error", rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCheckoutHandler_MissingSessionRedirectsToErrorPage(t *testing.T) {
	stub := &stubCheckout{resp: &service.CheckoutResponse{RedirectURL: "https://pay.example.test/"}}
	h := NewCheckoutController(stub, checkoutTestConfig(), zerolog.Nop())

	rec := postCheckout(h, url.Values{})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.test/error", rec.Header().Get("Location"))
}

func TestCheckoutHandler_AuthenticatedBuyerContext(t *testing.T) {
	stub := &stubCheckout{resp: &service.CheckoutResponse{RedirectURL: "https://pay.example.test/"}}
	h := NewCheckoutController(stub, checkoutTestConfig(), zerolog.Nop())

	form := url.Values{}
	form.Set("session_id", "s1")
	rec := postCheckout(h, form, func(r *http.Request) {
		claims := &middleware.Claims{
			UserID: "b9f6d30e-3f5e-4f7a-9a41-6a8f0a6c1111",
			Email:  "account@example.test",
			Name:   "Account Holder",
			Banned: true,
		}
		*r = *r.WithContext(middleware.WithClaims(r.Context(), claims))
	})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, stub.gotReq.Buyer.Authenticated)
	assert.True(t, stub.gotReq.Buyer.Banned)
	assert.Equal(t, "account@example.test", stub.gotReq.Buyer.Email)
	require.NotNil(t, stub.gotReq.Buyer.UserID)
}
