// Package casher provides Redis-based caching of survey documents for the
// public fill path
package casher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SURVEY_KEY_TEMPLATE prefixes all survey keys with "survey:"
const SURVEY_KEY_TEMPLATE = "survey:%s"

// ErrMiss is returned by GetCashFor when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Casher handles caching operations using Redis as the backend
type Casher struct {
	client *redis.Client
	logger *logger.Logger
	ttl    time.Duration
}

// Init creates a new Casher. A zero ttl keeps entries until they are removed.
func Init(client *redis.Client, logger *logger.Logger, ttl time.Duration) *Casher {
	return &Casher{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func (c *Casher) Close() error {
	return c.client.Close()
}

func (c *Casher) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return c.client.Ping(ctx).Err() == nil
}

// AddToCash stores payload under key.
func (c *Casher) AddToCash(ctx context.Context, key string, payload any) error {
	res := c.client.Set(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key), payload, c.ttl)

	if err := res.Err(); err != nil {
		c.logger.Error("failed to cash payload with",
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// GetCashFor returns the cached bytes for key or ErrMiss.
func (c *Casher) GetCashFor(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		c.logger.Error("error get cash",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, err
	}

	return data, nil
}

func (c *Casher) RemoveFromCash(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key)).Err(); err != nil {
		c.logger.Error("error delete from redis",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	return nil
}
