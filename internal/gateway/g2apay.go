package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/infrastructure/config"
)

const NameG2APay = "G2APay"

const (
	g2aTokenURL           = "https://checkout.pay.g2a.com/index/createQuote"
	g2aSandboxTokenURL    = "https://checkout.test.pay.g2a.com/index/createQuote"
	g2aRedirectURL        = "https://checkout.pay.g2a.com/index/gateway?token="
	g2aSandboxRedirectURL = "https://checkout.test.pay.g2a.com/index/gateway?token="
	g2aRestURL            = "https://pay.g2a.com/rest/transactions/"
	g2aSandboxRestURL     = "https://www.test.pay.g2a.com/rest/transactions/"
)

const g2aMaxResponseBytes = 1 << 20

// G2APay implements the token+redirect checkout flow and the REST refund
// protocol. The sandbox/live environment is resolved once at construction:
// endpoints and credentials always switch together.
type G2APay struct {
	tokenURL    string
	redirectURL string
	restURL     string

	apiHash       string
	secret        string
	merchantEmail string

	successURL string
	failureURL string

	client *http.Client
	logger zerolog.Logger
}

type G2AOption func(*G2APay)

// WithG2AEndpoints overrides the gateway endpoints, used by tests.
func WithG2AEndpoints(tokenURL, redirectURL, restURL string) G2AOption {
	return func(g *G2APay) {
		g.tokenURL = tokenURL
		g.redirectURL = redirectURL
		g.restURL = restURL
	}
}

func WithG2AHTTPClient(c *http.Client) G2AOption {
	return func(g *G2APay) { g.client = c }
}

func NewG2APay(cfg config.G2AConfig, logger zerolog.Logger, opts ...G2AOption) *G2APay {
	g := &G2APay{
		tokenURL:      g2aTokenURL,
		redirectURL:   g2aRedirectURL,
		restURL:       g2aRestURL,
		apiHash:       cfg.APIHash,
		secret:        cfg.Secret,
		merchantEmail: cfg.MerchantEmail,
		successURL:    cfg.SuccessURL,
		failureURL:    cfg.FailureURL,
		client:        &http.Client{Timeout: 5 * time.Second},
		logger:        logger,
	}
	if cfg.Sandbox {
		g.tokenURL = g2aSandboxTokenURL
		g.redirectURL = g2aSandboxRedirectURL
		g.restURL = g2aSandboxRestURL
		g.apiHash = cfg.SandboxAPIHash
		g.secret = cfg.SandboxSecret
		g.merchantEmail = cfg.SandboxMerchantEmail
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *G2APay) Name() string { return NameG2APay }

// InitiateCheckout creates a payment quote and returns the buyer redirect.
// The gateway's item schema cannot represent fractional purchase quantities,
// so a single synthetic line item with qty=1 carries the order total as both
// amount and price; the true fractional quantity rides in the "extra" field.
func (g *G2APay) InitiateCheckout(ctx context.Context, o *order.Order) (*CheckoutResult, error) {
	amount := o.Amount.StringFixed(2)

	item := map[string]any{
		"id":     o.ProductID,
		"sku":    o.ProductID,
		"name":   o.ProductTitle,
		"amount": amount,
		"price":  amount,
		"qty":    1,
		"type":   "product",
		"url":    o.ProductURL,
		"extra":  o.Quantity.String(),
	}
	items, err := json.Marshal([]any{item})
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	params := url.Values{}
	params.Set("api_hash", g.apiHash)
	params.Set("hash", g.quoteHash(o.Amount, o.Currency, o.Number))
	params.Set("order_id", o.Number)
	params.Set("amount", amount)
	params.Set("currency", o.Currency)
	params.Set("url_failure", g.failureURL)
	params.Set("url_ok", g.successURL)
	params.Set("items", string(items))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error().Err(err).Str("order", o.Number).Msg("g2apay quote request failed")
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrPaymentInitFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domainErrors.ErrPaymentInitFailed, resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, g2aMaxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode quote response: %v", domainErrors.ErrPaymentInitFailed, err)
	}
	if body.Token == "" {
		return nil, fmt.Errorf("%w: quote response has no token", domainErrors.ErrPaymentInitFailed)
	}

	return &CheckoutResult{RedirectURL: g.redirectURL + body.Token}, nil
}

// Refund issues an authenticated refund against the sale recorded on the
// order. A 200 response is a successful refund, anything else is a business
// failure carrying the gateway's response body.
func (g *G2APay) Refund(ctx context.Context, o *order.Order) (*RefundOutcome, error) {
	amount := o.Amount.StringFixed(2)

	params := url.Values{}
	params.Set("action", "refund")
	params.Set("amount", amount)
	params.Set("hash", g.refundHash(o.SaleID, o.Number, amount, amount))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.restURL+o.SaleID, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", g.apiHash+";"+g.authHash())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refund request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, g2aMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read refund response: %w", err)
	}
	message := strings.TrimSpace(string(raw))
	code := strconv.Itoa(resp.StatusCode)

	if resp.StatusCode == http.StatusOK {
		return &RefundOutcome{Status: RefundSuccess, Message: message, Code: code}, nil
	}
	return &RefundOutcome{Status: RefundFailed, Message: message, Code: code}, nil
}

// quoteHash signs the checkout quote. The amount is rounded to 2 decimal
// places before signing; the remote side re-derives the hash from the
// rounded value and a mismatch fails authentication silently.
func (g *G2APay) quoteHash(amount decimal.Decimal, currency, orderNumber string) string {
	return sha256hex(orderNumber + amount.StringFixed(2) + currency + g.secret)
}

func (g *G2APay) authHash() string {
	return sha256hex(g.apiHash + g.merchantEmail + g.secret)
}

func (g *G2APay) refundHash(transactionID, orderNumber, amount, refundAmount string) string {
	return sha256hex(transactionID + orderNumber + amount + refundAmount + g.secret)
}

func sha256hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
