package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrNotCached signals a cache miss.
var ErrNotCached = errors.New("latest value not cached")

// LatestValue is the most recent calculated value of a synthetic variable,
// kept in redis for cheap dashboard reads.
type LatestValue struct {
	SyntheticVariableID int64           `json:"synthetic_variable_id"`
	DeviceID            string          `json:"device_id"`
	Name                string          `json:"name"`
	Unit                string          `json:"unit"`
	Value               decimal.Decimal `json:"value"`
	Timestamp           time.Time       `json:"timestamp"`
}

// LatestValueStore caches the newest calculated value per (device, variable).
type LatestValueStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestValueStore returns redis-backed store.
func NewLatestValueStore(client *redis.Client, ttl time.Duration) *LatestValueStore {
	return &LatestValueStore{client: client, ttl: ttl}
}

func (s *LatestValueStore) key(deviceID, name string) string {
	return fmt.Sprintf("synthetic:latest:%s:%s", deviceID, name)
}

// Save caches the value.
func (s *LatestValueStore) Save(ctx context.Context, value LatestValue) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(value.DeviceID, value.Name), data, s.ttl).Err()
}

// Get returns the cached value or ErrNotCached.
func (s *LatestValueStore) Get(ctx context.Context, deviceID, name string) (*LatestValue, error) {
	result, err := s.client.Get(ctx, s.key(deviceID, name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotCached
		}
		return nil, err
	}
	var value LatestValue
	if err := json.Unmarshal([]byte(result), &value); err != nil {
		return nil, err
	}
	return &value, nil
}

// Delete drops the cached value, used when a definition is removed.
func (s *LatestValueStore) Delete(ctx context.Context, deviceID, name string) error {
	return s.client.Del(ctx, s.key(deviceID, name)).Err()
}
