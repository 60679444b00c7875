package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"BTC", NameG2APay},
		{"btc", NameG2APay},
		{"G2APay", NameG2APay},
		{"g2apay", NameG2APay},
		{"Bancontact", NameG2APay},
		{"BANCONTACT", NameG2APay},
		{"Skrill", NameSkrill},
		{"PSC", NameSkrill},
		{"paysafecard", NameSkrill},
		{"", NameSkrill},
		{"anything-else", NameSkrill},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.method))
		})
	}
}

// The stored provider name of an order must resolve back to the gateway that
// produced it, so refunds route through Select unchanged.
func TestSelect_ProviderNamesRoundTrip(t *testing.T) {
	assert.Equal(t, NameG2APay, Select(NameG2APay))
	assert.Equal(t, NameSkrill, Select(NameSkrill))
}

func TestFactory_Get(t *testing.T) {
	g2a := NewMockGateway(NameG2APay)
	skrill := NewMockGateway(NameSkrill)
	factory := NewFactory(g2a, skrill)

	gw, breaker, err := factory.Get(NameG2APay)
	require.NoError(t, err)
	assert.Equal(t, NameG2APay, gw.Name())
	assert.NotNil(t, breaker)
}

func TestFactory_Get_Unknown(t *testing.T) {
	factory := NewFactory()

	gw, breaker, err := factory.Get("nonexistent")
	assert.Nil(t, gw)
	assert.Nil(t, breaker)
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotFound)
}

func TestFactory_ForMethod(t *testing.T) {
	g2a := NewMockGateway(NameG2APay)
	skrill := NewMockGateway(NameSkrill)
	factory := NewFactory(g2a, skrill)

	gw, _, err := factory.ForMethod("btc")
	require.NoError(t, err)
	assert.Equal(t, NameG2APay, gw.Name())

	gw, _, err = factory.ForMethod("CreditCard")
	require.NoError(t, err)
	assert.Equal(t, NameSkrill, gw.Name())
}

func TestFactory_Register(t *testing.T) {
	factory := NewFactory()
	factory.Register(NewMockGateway("custom"))

	gw, breaker, err := factory.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", gw.Name())
	assert.NotNil(t, breaker)
}
