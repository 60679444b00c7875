package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/infrastructure/config"
)

func g2aTestConfig() config.G2AConfig {
	return config.G2AConfig{
		APIHash:       "api-hash",
		Secret:        "secret",
		MerchantEmail: "merchant@example.test",
		SuccessURL:    "https://shop.example.test/success",
		FailureURL:    "https://shop.example.test/failure",
	}
}

func g2aTestOrder() *order.Order {
	return &order.Order{
		Number:       "k4WqXz9",
		ProductID:    1,
		ProductTitle: "Gold",
		ProductURL:   "https://shop.example.test/gold",
		Amount:       decimal.RequireFromString("103.50"),
		Quantity:     decimal.RequireFromString("10.5"),
		Currency:     "USD",
		SaleID:       "sale-123",
	}
}

func TestG2APay_InitiateCheckout(t *testing.T) {
	var got struct {
		apiHash string
		hash    string
		orderID string
		amount  string
		items   string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.apiHash = r.FormValue("api_hash")
		got.hash = r.FormValue("hash")
		got.orderID = r.FormValue("order_id")
		got.amount = r.FormValue("amount")
		got.items = r.FormValue("items")
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-abc"})
	}))
	defer server.Close()

	g := NewG2APay(g2aTestConfig(), zerolog.Nop(),
		WithG2AEndpoints(server.URL, "https://checkout.example.test/gateway?token=", server.URL+"/rest/"))

	result, err := g.InitiateCheckout(context.Background(), g2aTestOrder())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.test/gateway?token=tok-abc", result.RedirectURL)

	assert.Equal(t, "api-hash", got.apiHash)
	assert.Equal(t, "k4WqXz9", got.orderID)
	assert.Equal(t, "103.50", got.amount)
	// sha256("k4WqXz9" + "103.50" + "USD" + "secret")
	assert.Equal(t, sha256hex("k4WqXz9103.50USDsecret"), got.hash)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.items), &items))
	require.Len(t, items, 1)
	assert.Equal(t, float64(1), items[0]["qty"])
	assert.Equal(t, "103.50", items[0]["amount"])
	assert.Equal(t, "10.5", items[0]["extra"])
}

func TestG2APay_InitiateCheckout_SignsRoundedAmount(t *testing.T) {
	var hash, amount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		hash = r.FormValue("hash")
		amount = r.FormValue("amount")
		json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
	}))
	defer server.Close()

	g := NewG2APay(g2aTestConfig(), zerolog.Nop(),
		WithG2AEndpoints(server.URL, "https://checkout.example.test/?token=", server.URL))

	o := g2aTestOrder()
	o.Amount = decimal.RequireFromString("103.555")

	_, err := g.InitiateCheckout(context.Background(), o)
	require.NoError(t, err)

	assert.Equal(t, "103.56", amount)
	assert.Equal(t, sha256hex("k4WqXz9103.56USDsecret"), hash)
}

func TestG2APay_InitiateCheckout_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "error"})
	}))
	defer server.Close()

	g := NewG2APay(g2aTestConfig(), zerolog.Nop(),
		WithG2AEndpoints(server.URL, "https://checkout.example.test/?token=", server.URL))

	result, err := g.InitiateCheckout(context.Background(), g2aTestOrder())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentInitFailed)
}

func TestG2APay_InitiateCheckout_GatewayDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := NewG2APay(g2aTestConfig(), zerolog.Nop(),
		WithG2AEndpoints(server.URL, "https://checkout.example.test/?token=", server.URL))

	_, err := g.InitiateCheckout(context.Background(), g2aTestOrder())
	assert.ErrorIs(t, err, domainErrors.ErrPaymentInitFailed)
}

func TestG2APay_Refund_Success(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotHash, gotAmount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotHash = r.FormValue("hash")
		gotAmount = r.FormValue("amount")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	g := NewG2APay(g2aTestConfig(), zerolog.Nop(),
		WithG2AEndpoints(server.URL, server.URL+"/?token=", server.URL+"/rest/transactions/"))

	outcome, err := g.Refund(context.Background(), g2aTestOrder())
	require.NoError(t, err)
	assert.Equal(t, RefundSuccess, outcome.Status)
	assert.Equal(t, "200", outcome.Code)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/rest/transactions/sale-123", gotPath)
	assert.Equal(t, "api-hash;"+sha256hex("api-hashmerchant@example.testsecret"), gotAuth)
	assert.Equal(t, "103.50", gotAmount)
	assert.Equal(t, sha256hex("sale-123k4WqXz9103.50103.50secret"), gotHash)
}

func TestG2APay_Refund_GatewayRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("refund already processed"))
	}))
	defer server.Close()

	g := NewG2APay(g2aTestConfig(), zerolog.Nop(),
		WithG2AEndpoints(server.URL, server.URL+"/?token=", server.URL+"/rest/transactions/"))

	outcome, err := g.Refund(context.Background(), g2aTestOrder())
	require.NoError(t, err)
	assert.Equal(t, RefundFailed, outcome.Status)
	assert.Equal(t, "refund already processed", outcome.Message)
	assert.Equal(t, "422", outcome.Code)
}

func TestNewG2APay_SandboxSwitchesCredentialsWithEndpoints(t *testing.T) {
	cfg := g2aTestConfig()
	cfg.Sandbox = true
	cfg.SandboxAPIHash = "sandbox-hash"
	cfg.SandboxSecret = "sandbox-secret"
	cfg.SandboxMerchantEmail = "sandbox@example.test"

	g := NewG2APay(cfg, zerolog.Nop())

	assert.Equal(t, g2aSandboxTokenURL, g.tokenURL)
	assert.Equal(t, g2aSandboxRestURL, g.restURL)
	assert.Equal(t, "sandbox-hash", g.apiHash)
	assert.Equal(t, "sandbox-secret", g.secret)
	assert.Equal(t, "sandbox@example.test", g.merchantEmail)
}
