package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/service"
)

const sessionKeyPrefix = "session:pricing:"

// SessionStore keeps pricing contexts in Redis keyed by session id.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore whose entries expire after ttl.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// GetPricingContext loads the pricing snapshot for the session.
func (s *SessionStore) GetPricingContext(ctx context.Context, sessionID string) (*service.PricingContext, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domainErrors.ErrPricingNotFound
		}
		return nil, fmt.Errorf("get pricing context: %w", err)
	}

	var pc service.PricingContext
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("decode pricing context: %w", err)
	}
	return &pc, nil
}

// SavePricingContext writes the pricing snapshot back, refreshing the TTL.
func (s *SessionStore) SavePricingContext(ctx context.Context, sessionID string, pc *service.PricingContext) error {
	data, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("encode pricing context: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save pricing context: %w", err)
	}
	return nil
}
