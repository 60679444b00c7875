package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/goldshop/checkout/internal/infrastructure/config"
)

// Location is the IP intelligence attached to an order for fraud review.
type Location struct {
	City       string `json:"city"`
	Country    string `json:"country"`
	Risk       string `json:"risk"`
	UserType   string `json:"user_type"`
	PostalCode string `json:"postal_code"`
}

type Resolver interface {
	Resolve(ctx context.Context, ip string) (*Location, error)
}

// HTTPResolver queries an external IP intelligence service.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

func NewHTTPResolver(cfg config.GeoConfig, logger zerolog.Logger) *HTTPResolver {
	return &HTTPResolver{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, ip string) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return nil, fmt.Errorf("build geo request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup: unexpected status %d", resp.StatusCode)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, fmt.Errorf("decode geo response: %w", err)
	}
	return &loc, nil
}

// NoopResolver is used when no geo endpoint is configured.
type NoopResolver struct{}

func (NoopResolver) Resolve(context.Context, string) (*Location, error) {
	return &Location{}, nil
}
