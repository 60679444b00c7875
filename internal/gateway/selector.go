package gateway

import (
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
)

// g2apayAliases is the fixed allow-list of payment-method identifiers that
// route to G2APay. Everything else falls through to Skrill. The permissive
// fallback is deliberate: refund routing resolves the stored provider name
// ("Skrill") through the same function.
var g2apayAliases = map[string]struct{}{
	"btc":        {},
	"g2apay":     {},
	"bancontact": {},
}

// Select maps a payment-method identifier to a gateway name. Pure and
// case-insensitive.
func Select(method string) string {
	if _, ok := g2apayAliases[strings.ToLower(method)]; ok {
		return NameG2APay
	}
	return NameSkrill
}

// Factory holds registered gateways with a circuit breaker per gateway.
type Factory struct {
	gateways map[string]Gateway
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewFactory(gateways ...Gateway) *Factory {
	f := &Factory{
		gateways: make(map[string]Gateway),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	for _, g := range gateways {
		f.Register(g)
	}
	return f
}

// Register registers a gateway and creates a circuit breaker for it.
func (f *Factory) Register(g Gateway) {
	f.gateways[g.Name()] = g
	f.breakers[g.Name()] = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        g.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Get returns the gateway and its circuit breaker for the given name.
func (f *Factory) Get(name string) (Gateway, *gobreaker.CircuitBreaker[any], error) {
	g, ok := f.gateways[name]
	if !ok {
		return nil, nil, domainErrors.NewDomainError(
			"gateway_not_found", "no gateway registered as "+name, domainErrors.ErrGatewayNotFound)
	}
	return g, f.breakers[name], nil
}

// ForMethod resolves a payment-method identifier (or a stored provider name)
// through Select and returns the matching gateway.
func (f *Factory) ForMethod(method string) (Gateway, *gobreaker.CircuitBreaker[any], error) {
	return f.Get(Select(method))
}
