package gateway

import (
	"context"
	"fmt"
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

func skrillTestConfig() config.SkrillConfig {
	return config.SkrillConfig{
		Email:        "merchant@example.test",
		EUREmail:     "merchant-eur@example.test",
		GBPEmail:     "merchant-gbp@example.test",
		SandboxEmail: "sandbox@example.test",
		MQIPassword:  "mqi-password",
		NotifyURL:    "https://shop.example.test/notify",
		ReturnURL:    "https://shop.example.test/return",
		CancelURL:    "https://shop.example.test/cancel",
		LogoURL:      "https://shop.example.test/logo.png",
	}
}

func skrillTestOrder() *order.Order {
	return &order.Order{
		Number:        "k4WqXz9",
		ProductTitle:  "Gold",
		Amount:        decimal.RequireFromString("103.50"),
		Quantity:      decimal.RequireFromString("10.5"),
		Currency:      "USD",
		TransactionID: "trn-456",
	}
}

func TestSkrill_InitiateCheckout(t *testing.T) {
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.FormValue(k)
		}
		w.Write([]byte("sid-xyz"))
	}))
	defer server.Close()

	s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
		WithSkrillEndpoints(server.URL, server.URL+"/refund"))

	result, err := s.InitiateCheckout(context.Background(), skrillTestOrder())
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/?sid=sid-xyz", result.RedirectURL)

	assert.Equal(t, "merchant@example.test", form["pay_to_email"])
	assert.Equal(t, "k4WqXz9", form["transaction_id"])
	assert.Equal(t, "103.50", form["amount"])
	assert.Equal(t, "USD", form["currency"])
	assert.Equal(t, "1", form["prepare_only"])
	assert.Equal(t, "10.5 Gold", form["detail1_text"])
}

func TestSkrill_InitiateCheckout_PerCurrencyEmail(t *testing.T) {
	tests := []struct {
		currency string
		sandbox  bool
		want     string
	}{
		{"USD", false, "merchant@example.test"},
		{"EUR", false, "merchant-eur@example.test"},
		{"GBP", false, "merchant-gbp@example.test"},
		{"PLN", false, "merchant@example.test"},
		{"GBP", true, "sandbox@example.test"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s sandbox=%v", tt.currency, tt.sandbox), func(t *testing.T) {
			cfg := skrillTestConfig()
			cfg.Sandbox = tt.sandbox
			s := NewSkrill(cfg, zerolog.Nop())
			assert.Equal(t, tt.want, s.paymentEmail(tt.currency))
		})
	}
}

func TestSkrill_InitiateCheckout_EmptySession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  "))
	}))
	defer server.Close()

	s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
		WithSkrillEndpoints(server.URL, server.URL+"/refund"))

	result, err := s.InitiateCheckout(context.Background(), skrillTestOrder())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentInitFailed)
}

// skrillRefundServer simulates the two-step merchant query interface: the
// prepare call answers with prepareBody, the execute call with refundBody.
func skrillRefundServer(t *testing.T, prepareBody, refundBody string) (*httptest.Server, *[]map[string]string) {
	t.Helper()
	calls := &[]map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.FormValue(k)
		}
		*calls = append(*calls, form)
		switch form["action"] {
		case "prepare":
			w.Write([]byte(prepareBody))
		case "refund":
			w.Write([]byte(refundBody))
		default:
			t.Errorf("unexpected action %q", form["action"])
		}
	}))
	return server, calls
}

func TestSkrill_Refund_Complete(t *testing.T) {
	server, calls := skrillRefundServer(t,
		"<response><sid>refund-sid</sid></response>",
		"<response><status>2</status></response>")
	defer server.Close()

	s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
		WithSkrillEndpoints(server.URL, server.URL))

	outcome, err := s.Refund(context.Background(), skrillTestOrder())
	require.NoError(t, err)
	assert.Equal(t, RefundSuccess, outcome.Status)
	assert.Equal(t, "Order has been successfully refunded", outcome.Message)
	assert.Equal(t, "200", outcome.Code)

	require.Len(t, *calls, 2)
	prepare := (*calls)[0]
	assert.Equal(t, "trn-456", prepare["transaction_id"])
	assert.Equal(t, md5hex("mqi-password"), prepare["password"])
	execute := (*calls)[1]
	assert.Equal(t, "refund-sid", execute["sid"])
}

func TestSkrill_Refund_Pending(t *testing.T) {
	server, _ := skrillRefundServer(t,
		"<response><sid>refund-sid</sid></response>",
		"<response><status>0</status></response>")
	defer server.Close()

	s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
		WithSkrillEndpoints(server.URL, server.URL))

	outcome, err := s.Refund(context.Background(), skrillTestOrder())
	require.NoError(t, err)
	assert.Equal(t, RefundPending, outcome.Status)
	assert.Equal(t, "Order refunding is pending, please wait", outcome.Message)
}

func TestSkrill_Refund_FailureCodes(t *testing.T) {
	tests := []struct {
		status   int
		error    string
		wantMsg  string
		wantCode string
	}{
		{-1, "", "refund rejected by the gateway", "-1"},
		{-2, "BALANCE_NOT_ENOUGH", "merchant balance is not sufficient for the refund", "BALANCE_NOT_ENOUGH"},
		{-3, "", "refund charged back by the gateway", "-3"},
		{-2, "SOME_NEW_CODE", "refund failed", "SOME_NEW_CODE"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d error %q", tt.status, tt.error), func(t *testing.T) {
			body := fmt.Sprintf("<response><status>%d</status><error>%s</error></response>", tt.status, tt.error)
			server, _ := skrillRefundServer(t, "<response><sid>refund-sid</sid></response>", body)
			defer server.Close()

			s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
				WithSkrillEndpoints(server.URL, server.URL))

			outcome, err := s.Refund(context.Background(), skrillTestOrder())
			require.NoError(t, err)
			assert.Equal(t, RefundFailed, outcome.Status)
			assert.Equal(t, tt.wantMsg, outcome.Message)
			assert.Equal(t, tt.wantCode, outcome.Code)
		})
	}
}

func TestSkrill_Refund_UnknownStatus(t *testing.T) {
	server, _ := skrillRefundServer(t,
		"<response><sid>refund-sid</sid></response>",
		"<response><status>7</status></response>")
	defer server.Close()

	s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
		WithSkrillEndpoints(server.URL, server.URL))

	outcome, err := s.Refund(context.Background(), skrillTestOrder())
	require.NoError(t, err)
	assert.Equal(t, RefundError, outcome.Status)
	assert.Equal(t, "unexpected refund status 7", outcome.Message)
}

func TestSkrill_Refund_PrepareError(t *testing.T) {
	server, calls := skrillRefundServer(t,
		"<response><error><error_msg>ALREADY_REFUNDED</error_msg></error></response>", "")
	defer server.Close()

	s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
		WithSkrillEndpoints(server.URL, server.URL))

	outcome, err := s.Refund(context.Background(), skrillTestOrder())
	require.NoError(t, err)
	assert.Equal(t, RefundError, outcome.Status)
	assert.Equal(t, "ALREADY_REFUNDED", outcome.Message)
	assert.Len(t, *calls, 1, "execute step must not run after a prepare error")
}

func TestSkrill_Refund_GatewayDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := NewSkrill(skrillTestConfig(), zerolog.Nop(),
		WithSkrillEndpoints(server.URL, server.URL))

	outcome, err := s.Refund(context.Background(), skrillTestOrder())
	assert.Nil(t, outcome)
	assert.Error(t, err)
}
