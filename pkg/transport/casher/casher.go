// Package casher provides Redis-based caching of persisted questionnaires
package casher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// KeyTemplate namespaces all cached questionnaires under "questionnaire:"
const KeyTemplate = "questionnaire:%s"

// ErrMiss is returned by GetCashFor when nothing is cached under the key
var ErrMiss = errors.New("cache miss")

// Casher handles caching operations using Redis as the backend. Values are
// stored msgpack-encoded.
type Casher struct {
	client *redis.Client
	logger *logger.Logger
	ttl    time.Duration
}

// Init creates a new Casher. A zero ttl keeps entries until removed.
func Init(client *redis.Client, logger *logger.Logger, ttl time.Duration) *Casher {
	return &Casher{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Connect parses a redis:// url and pings the server
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func key(id string) string {
	return fmt.Sprintf(KeyTemplate, id)
}

func (c *Casher) Close() error {
	return c.client.Close()
}

func (c *Casher) IsHealthy() bool {
	return c.client.Ping(context.Background()).Err() == nil
}

// AddToCash stores payload under id
func (c *Casher) AddToCash(ctx context.Context, id string, payload any) error {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to encode payload for cache",
			zap.String("key", id),
			zap.Error(err))
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, key(id), data, c.ttl).Err(); err != nil {
		c.logger.Error("failed to cash payload with",
			zap.String("key", id),
			zap.Error(err),
		)
		return fmt.Errorf("set cache entry: %w", err)
	}

	return nil
}

// GetCashFor decodes the entry cached under id into out, which must be a
// pointer. A missing entry yields ErrMiss.
func (c *Casher) GetCashFor(ctx context.Context, id string, out any) error {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		c.logger.Error("error get cash",
			zap.String("key", id),
			zap.Error(err),
		)
		return fmt.Errorf("get cache entry: %w", err)
	}

	if err := msgpack.Unmarshal(data, out); err != nil {
		c.logger.Error("error decode cashed bytes",
			zap.String("key", id),
			zap.Error(err),
		)
		// undecodable entries are dropped
		c.RemoveFromCash(ctx, id)
		return fmt.Errorf("decode cache entry: %w", err)
	}

	return nil
}

// RemoveFromCash deletes the entry cached under id. Deleting a missing entry
// is not an error.
func (c *Casher) RemoveFromCash(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		c.logger.Error("error delete from redis",
			zap.String("key", id),
			zap.Error(err))
		return fmt.Errorf("delete cache entry: %w", err)
	}

	return nil
}
