// Package redis wraps go-redis with a retried connect and the handful of
// commands the catalog cache and idempotency middleware need.
package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prohmpiriya/rail-booking/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// Nil is the error of a lookup on a missing key
const Nil = redis.Nil

const healthCheckTimeout = 5 * time.Second

// Config describes one Redis endpoint and its pool
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxRetries and RetryInterval bound the connect loop in NewClient
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultConfig points at a local Redis
func DefaultConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          6379,
		PoolSize:      50,
		MinIdleConns:  5,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
}

// Addr is host:port
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// Client is a connected Redis client
type Client struct {
	rdb *redis.Client
}

// NewClient connects and pings, retrying at a fixed interval until Redis
// answers or cfg.MaxRetries is spent
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rdb := redis.NewClient(cfg.options())

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	res := retry.New(&retry.Config{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: interval,
		MaxInterval:     interval,
		Multiplier:      1,
	}).Do(ctx, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if res.Err != nil {
		_ = rdb.Close()
		cause := res.LastError
		if cause == nil {
			cause = res.Err
		}
		return nil, fmt.Errorf("redis %s unreachable after %d attempts: %w", cfg.Addr(), res.Attempts, cause)
	}

	return &Client{rdb: rdb}, nil
}

// Close releases the pool
func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck pings Redis with a short deadline
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	return c.rdb.Get(ctx, key)
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return c.rdb.Set(ctx, key, value, expiration)
}

// SetNX writes key only when it is absent
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	return c.rdb.SetNX(ctx, key, value, expiration)
}

func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return c.rdb.Del(ctx, keys...)
}
