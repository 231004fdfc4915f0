package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

const (
	// StateKey holds the whole simulation state collection
	StateKey = "deconflict:state"
	// ReportKey holds the most recent conflict report
	ReportKey = "deconflict:report"
	// SummaryKey holds the summary of the most recent iterative run
	SummaryKey = "deconflict:summary"
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client manages Redis connections and operations
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// setData marshals value and stores it under key
func (c *Client) setData(ctx context.Context, key string, value interface{}, expiration time.Duration, dataType string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", dataType, err)
	}
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", dataType, err)
	}
	return nil
}

// getData retrieves data from Redis and unmarshals it into the target.
// found is false when the key does not exist.
func (c *Client) getData(ctx context.Context, key string, target interface{}, dataType string) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s data: %w", dataType, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s data: %w", dataType, err)
	}

	return true, nil
}

// LoadAll reads the full simulation state. A missing key is an error: the
// state must be created by a reset before it can be read.
func (c *Client) LoadAll(ctx context.Context) (types.State, error) {
	var state types.State
	found, err := c.getData(ctx, StateKey, &state, "simulation state")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("simulation state not found at key %s", StateKey)
	}
	return state, nil
}

// SaveAll overwrites the full simulation state. The key never expires.
func (c *Client) SaveAll(ctx context.Context, state types.State) error {
	if state == nil {
		state = types.State{}
	}
	return c.setData(ctx, StateKey, state, 0, "simulation state")
}

// DeleteState removes the simulation state
func (c *Client) DeleteState(ctx context.Context) error {
	return c.client.Del(ctx, StateKey).Err()
}

// StoreReport caches the latest conflict report
func (c *Client) StoreReport(ctx context.Context, clusters []types.Cluster) error {
	if clusters == nil {
		clusters = []types.Cluster{}
	}
	return c.setData(ctx, ReportKey, clusters, 24*time.Hour, "conflict report")
}

// GetReport retrieves the cached conflict report, nil if none is cached
func (c *Client) GetReport(ctx context.Context) ([]types.Cluster, error) {
	var clusters []types.Cluster
	found, err := c.getData(ctx, ReportKey, &clusters, "conflict report")
	if err != nil || !found {
		return nil, err
	}
	return clusters, nil
}

// StoreSummary caches the summary of an iterative run
func (c *Client) StoreSummary(ctx context.Context, summary *types.RunSummary) error {
	return c.setData(ctx, SummaryKey, summary, 24*time.Hour, "run summary")
}

// GetSummary retrieves the cached run summary, nil if none is cached
func (c *Client) GetSummary(ctx context.Context) (*types.RunSummary, error) {
	var summary types.RunSummary
	found, err := c.getData(ctx, SummaryKey, &summary, "run summary")
	if err != nil || !found {
		return nil, err
	}
	return &summary, nil
}
