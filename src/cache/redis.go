package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/redis/go-redis/v9"
)

// Snapshots expire quickly, stale state is worse than no state.
const snapshotTTL = 2 * time.Minute

// -----------------------------------------------------------------------------

// RedisSnapshotCache mirrors the latest state into Redis. Readers either poll
// the key or subscribe to the announce channel.
type RedisSnapshotCache struct {
	client  *redis.Client
	key     string
	channel string
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// NewRedisSnapshotCache connects to Redis and verifies the connection.
func NewRedisSnapshotCache(cfg models.MCacheConfig, appName string, log *logger.Logger) (interfaces.ISnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSnapshotCache{
		client:  client,
		key:     fmt.Sprintf("%s:snapshot", appName),
		channel: cfg.Channel,
		logger:  log,
	}, nil
}

// -----------------------------------------------------------------------------

// PublishSnapshot stores the snapshot under the app key and announces it on
// the configured channel.
func (c *RedisSnapshotCache) PublishSnapshot(ctx context.Context, snapshot *models.MLatestData) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.key, data, snapshotTTL).Err(); err != nil {
		return err
	}

	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		// Key write succeeded, announce is best effort
		c.logger.Warning("Failed to announce snapshot on %s: %v", c.channel, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Close closes the cache connection
func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}
