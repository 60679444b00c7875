package ordernum

import (
	"fmt"
	"sync/atomic"
	"time"

	hashids "github.com/speps/go-hashids/v2"

	"github.com/goldshop/checkout/internal/infrastructure/config"
)

// Generator produces short, non-sequential, collision-free order numbers.
// The encoded payload is the creation timestamp plus a process-local
// counter, so two orders created in the same nanosecond still differ.
type Generator struct {
	encoder *hashids.HashID
	counter atomic.Int64
}

func NewGenerator(cfg config.OrderNumberConfig) (*Generator, error) {
	data := hashids.NewData()
	data.Salt = cfg.Salt
	data.MinLength = cfg.MinLength

	encoder, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("init order number encoder: %w", err)
	}
	return &Generator{encoder: encoder}, nil
}

func (g *Generator) Next() (string, error) {
	number, err := g.encoder.EncodeInt64([]int64{
		time.Now().UnixNano(),
		g.counter.Add(1),
	})
	if err != nil {
		return "", fmt.Errorf("encode order number: %w", err)
	}
	return number, nil
}
