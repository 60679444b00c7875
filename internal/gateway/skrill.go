package gateway

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/infrastructure/config"
)

const NameSkrill = "Skrill"

const (
	skrillPayURL    = "https://pay.skrill.com"
	skrillRefundURL = "https://www.skrill.com/app/refund.pl"
)

const skrillMaxResponseBytes = 1 << 20

// Refund status codes reported by the merchant query interface.
const (
	skrillStatusComplete   = 2
	skrillStatusPending    = 0
	skrillStatusRejected   = -1
	skrillStatusFailed     = -2
	skrillStatusChargeback = -3
)

var skrillStatusText = map[int]string{
	skrillStatusChargeback: "refund charged back by the gateway",
	skrillStatusFailed:     "refund failed",
	skrillStatusRejected:   "refund rejected by the gateway",
}

// skrillErrorText maps MQI error codes to operator-facing messages.
var skrillErrorText = map[string]string{
	"MISSING_TRN_ID":       "transaction id is missing",
	"INVALID_TRN_ID":       "transaction id is unknown to the gateway",
	"ALREADY_REFUNDED":     "transaction has already been refunded",
	"BALANCE_NOT_ENOUGH":   "merchant balance is not sufficient for the refund",
	"INVALID_PASSWORD":     "merchant query password rejected",
	"CUSTOMER_LIMITATION":  "customer account is limited",
	"MERCHANT_LIMITATION":  "merchant account is limited",
	"SESSION_EXPIRED":      "refund session expired",
	"GENERAL_REFUND_ERROR": "gateway reported a general refund error",
}

// Skrill implements the hosted-checkout flow and the two-step refund
// session protocol (prepare, then execute against the returned session id).
type Skrill struct {
	payURL    string
	refundURL string

	email        string
	eurEmail     string
	gbpEmail     string
	sandboxEmail string
	mqiPassword  string
	sandbox      bool

	notifyURL string
	returnURL string
	cancelURL string
	logoURL   string

	client *http.Client
	logger zerolog.Logger
}

type SkrillOption func(*Skrill)

// WithSkrillEndpoints overrides the gateway endpoints, used by tests.
func WithSkrillEndpoints(payURL, refundURL string) SkrillOption {
	return func(s *Skrill) {
		s.payURL = payURL
		s.refundURL = refundURL
	}
}

func WithSkrillHTTPClient(c *http.Client) SkrillOption {
	return func(s *Skrill) { s.client = c }
}

func NewSkrill(cfg config.SkrillConfig, logger zerolog.Logger, opts ...SkrillOption) *Skrill {
	s := &Skrill{
		payURL:       skrillPayURL,
		refundURL:    skrillRefundURL,
		email:        cfg.Email,
		eurEmail:     cfg.EUREmail,
		gbpEmail:     cfg.GBPEmail,
		sandboxEmail: cfg.SandboxEmail,
		mqiPassword:  cfg.MQIPassword,
		sandbox:      cfg.Sandbox,
		notifyURL:    cfg.NotifyURL,
		returnURL:    cfg.ReturnURL,
		cancelURL:    cfg.CancelURL,
		logoURL:      cfg.LogoURL,
		client:       &http.Client{Timeout: 5 * time.Second},
		logger:       logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Skrill) Name() string { return NameSkrill }

// InitiateCheckout prepares a hosted-checkout session. The gateway answers
// with a session id; the buyer is handed off to the hosted page immediately.
// Any non-redirect answer is a failure.
func (s *Skrill) InitiateCheckout(ctx context.Context, o *order.Order) (*CheckoutResult, error) {
	params := url.Values{}
	params.Set("pay_to_email", s.paymentEmail(o.Currency))
	params.Set("transaction_id", o.Number)
	params.Set("amount", o.Amount.StringFixed(2))
	params.Set("currency", o.Currency)
	params.Set("language", "EN")
	params.Set("logo_url", s.logoURL)
	params.Set("status_url", s.notifyURL)
	params.Set("return_url", s.returnURL)
	params.Set("cancel_url", s.cancelURL)
	params.Set("detail1_description", "Item")
	params.Set("detail1_text", fmt.Sprintf("%s %s", o.Quantity, o.ProductTitle))
	params.Set("prepare_only", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.payURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Str("order", o.Number).Msg("skrill checkout request failed")
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrPaymentInitFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domainErrors.ErrPaymentInitFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, skrillMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read checkout response: %v", domainErrors.ErrPaymentInitFailed, err)
	}
	sid := strings.TrimSpace(string(raw))
	if sid == "" {
		return nil, fmt.Errorf("%w: checkout response has no session id", domainErrors.ErrPaymentInitFailed)
	}

	return &CheckoutResult{RedirectURL: s.payURL + "/?sid=" + url.QueryEscape(sid)}, nil
}

type mqiPrepareResponse struct {
	XMLName xml.Name `xml:"response"`
	SID     string   `xml:"sid"`
	Error   struct {
		Msg string `xml:"error_msg"`
	} `xml:"error"`
}

type mqiRefundResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  int      `xml:"status"`
	Error   string   `xml:"error"`
}

// Refund runs the two-step session protocol: prepare the refund keyed by the
// gateway transaction id, then execute it against the returned session id.
// The signed integer status code is mapped into the canonical outcome; a
// code outside the known table is surfaced as a defect, never swallowed.
func (s *Skrill) Refund(ctx context.Context, o *order.Order) (*RefundOutcome, error) {
	prepare := url.Values{}
	prepare.Set("action", "prepare")
	prepare.Set("email", s.paymentEmail(o.Currency))
	prepare.Set("password", md5hex(s.mqiPassword))
	prepare.Set("transaction_id", o.TransactionID)

	var prep mqiPrepareResponse
	if err := s.mqiCall(ctx, prepare, &prep); err != nil {
		return nil, fmt.Errorf("refund prepare: %w", err)
	}
	if prep.Error.Msg != "" {
		return &RefundOutcome{Status: RefundError, Message: prep.Error.Msg}, nil
	}
	if prep.SID == "" {
		return &RefundOutcome{Status: RefundError, Message: "refund preparation returned no session id"}, nil
	}

	execute := url.Values{}
	execute.Set("action", "refund")
	execute.Set("sid", prep.SID)

	var res mqiRefundResponse
	if err := s.mqiCall(ctx, execute, &res); err != nil {
		return nil, fmt.Errorf("refund execute: %w", err)
	}

	switch res.Status {
	case skrillStatusComplete:
		return &RefundOutcome{
			Status:  RefundSuccess,
			Message: "Order has been successfully refunded",
			Code:    "200",
		}, nil
	case skrillStatusPending:
		return &RefundOutcome{
			Status:  RefundPending,
			Message: "Order refunding is pending, please wait",
		}, nil
	case skrillStatusRejected, skrillStatusFailed, skrillStatusChargeback:
		return &RefundOutcome{
			Status:  RefundFailed,
			Message: s.failureText(res.Status, res.Error),
			Code:    s.failureCode(res.Status, res.Error),
		}, nil
	default:
		s.logger.Error().Int("status", res.Status).Str("transaction_id", o.TransactionID).
			Msg("skrill reported a refund status outside the known table")
		return &RefundOutcome{
			Status:  RefundError,
			Message: fmt.Sprintf("unexpected refund status %d", res.Status),
			Code:    strconv.Itoa(res.Status),
		}, nil
	}
}

func (s *Skrill) mqiCall(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.refundURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := xml.NewDecoder(io.LimitReader(resp.Body, skrillMaxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (s *Skrill) failureText(status int, errorCode string) string {
	if text, ok := skrillErrorText[errorCode]; ok {
		return text
	}
	if text, ok := skrillStatusText[status]; ok {
		return text
	}
	return "refund failed"
}

func (s *Skrill) failureCode(status int, errorCode string) string {
	if errorCode != "" {
		return errorCode
	}
	return strconv.Itoa(status)
}

// paymentEmail picks the merchant account for the order currency. GBP and
// EUR settle on dedicated accounts; everything else uses the default one.
func (s *Skrill) paymentEmail(currency string) string {
	if s.sandbox {
		return s.sandboxEmail
	}
	switch currency {
	case "GBP":
		return s.gbpEmail
	case "EUR":
		return s.eurEmail
	default:
		return s.email
	}
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
