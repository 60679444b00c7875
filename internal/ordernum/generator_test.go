package ordernum

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldshop/checkout/internal/infrastructure/config"
)

func TestGenerator_Next(t *testing.T) {
	g, err := NewGenerator(config.OrderNumberConfig{Salt: "test-salt", MinLength: 8})
	require.NoError(t, err)

	number, err := g.Next()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(number), 8)
}

func TestGenerator_Next_UniqueUnderConcurrency(t *testing.T) {
	g, err := NewGenerator(config.OrderNumberConfig{Salt: "test-salt", MinLength: 8})
	require.NoError(t, err)

	const n = 200
	var mu sync.Mutex
	seen := make(map[string]struct{}, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := g.Next()
			assert.NoError(t, err)
			mu.Lock()
			seen[number] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestGenerator_SaltChangesOutput(t *testing.T) {
	// Same payload under different salts must not collide across deployments.
	a, err := NewGenerator(config.OrderNumberConfig{Salt: "salt-a", MinLength: 8})
	require.NoError(t, err)
	b, err := NewGenerator(config.OrderNumberConfig{Salt: "salt-b", MinLength: 8})
	require.NoError(t, err)

	na, err := a.Next()
	require.NoError(t, err)
	nb, err := b.Next()
	require.NoError(t, err)
	assert.NotEqual(t, na, nb)
}
