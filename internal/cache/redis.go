package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	recentSwapsKey   = "swaps:recent"
	recentSwapsLimit = 500

	// SwapsChannel carries every executed swap record.
	SwapsChannel = "swaps:executed"
)

var _ storage.SwapCache = (*RedisCache)(nil)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Logger   *logrus.Logger
}

// RedisCache keeps a bounded list of recent swap records and fans them out
// over pub/sub.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisCacheFromClient(client, cfg.Logger), nil
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection for stores that share it.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// RecordSwap prepends rec to the recent list and publishes it.
func (r *RedisCache) RecordSwap(ctx context.Context, rec *models.SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal swap record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, recentSwapsKey, data)
	pipe.LTrim(ctx, recentSwapsKey, 0, recentSwapsLimit-1)
	pipe.Publish(ctx, SwapsChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record swap in redis: %w", err)
	}
	return nil
}

// GetRecentSwaps returns up to limit records, newest first.
func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	raw, err := r.client.LRange(ctx, recentSwapsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent swaps: %w", err)
	}

	out := make([]*models.SwapRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.SwapRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			r.logger.WithError(err).Warn("skipping malformed swap record")
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// SubscribeSwaps streams published records until ctx is done.
func (r *RedisCache) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapRecord, error) {
	pubsub := r.client.Subscribe(ctx, SwapsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", SwapsChannel, err)
	}

	out := make(chan *models.SwapRecord, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rec models.SwapRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					r.logger.WithError(err).Warn("error unmarshaling swap record")
					continue
				}
				select {
				case out <- &rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
