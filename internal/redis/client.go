package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"order_ledger/internal/models"

	"github.com/go-redis/redis/v8"
)

const profilePrefix = "pricing_profile:"

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func profileKey(variantName string) string {
	return profilePrefix + strings.TrimSpace(variantName)
}

// GetProfile returns nil, nil when the profile is not cached.
func (c *Client) GetProfile(ctx context.Context, variantName string) (*models.PricingProfile, error) {
	val, err := c.rdb.Get(ctx, profileKey(variantName)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pricing profile: %w", err)
	}

	var profile models.PricingProfile
	if err := json.Unmarshal(val, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pricing profile: %w", err)
	}
	return &profile, nil
}

func (c *Client) SetProfile(ctx context.Context, variantName string, profile *models.PricingProfile, ttl time.Duration) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing profile: %w", err)
	}
	return c.rdb.Set(ctx, profileKey(variantName), data, ttl).Err()
}

func (c *Client) DeleteProfile(ctx context.Context, variantName string) error {
	return c.rdb.Del(ctx, profileKey(variantName)).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
