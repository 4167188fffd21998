// Package redis holds the Redis-backed pieces of the import pipeline: the
// per-collection import lock and the job snapshot mirror.
package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/reed/pkg/tracing"
)

const connectTimeout = 5 * time.Second

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Client struct {
	rdb    *redis.Client
	logger ectologger.Logger
}

// NewClient connects and pings, failing fast so startup can retry
func NewClient(ctx context.Context, cfg Config, logger ectologger.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  "reed",
		DialTimeout: connectTimeout,
	})
	client := &Client{rdb: rdb, logger: logger}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	logger.WithContext(ctx).WithField("db", cfg.DB).Infof("Connected to Redis at %s", cfg.Addr())
	return client, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping doubles as the readiness check
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "redis.Client.Ping")
	defer span.End()

	return c.rdb.Ping(ctx).Err()
}
