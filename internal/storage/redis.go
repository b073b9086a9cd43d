// internal/storage/redis.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis maps each Hash onto one Redis hash and each Value onto one string
// key, so multiple server processes sharing one Redis see the same lobby
// state. Individual HGET/HSET operations are serialized by Redis itself.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an already-configured client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// ConnectRedis dials Redis and verifies the connection with a ping.
func ConnectRedis(addr string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewRedis(client), nil
}

func (r *Redis) Lobbies(game string) Hash {
	return &redisHash{client: r.client, key: "lobbies:" + game}
}

func (r *Redis) Participants(lobbyID string) Hash {
	return &redisHash{client: r.client, key: "participants:" + lobbyID}
}

func (r *Redis) ParticipantMeta(lobbyID, participantID string) Hash {
	return &redisHash{client: r.client, key: "meta:" + lobbyID + ":" + participantID}
}

func (r *Redis) Latency(participantID string) Value {
	return &redisValue{client: r.client, key: "latency:" + participantID}
}

type redisHash struct {
	client *redis.Client
	key    string
}

func (h *redisHash) Keys(ctx context.Context) ([]string, error) {
	return h.client.HKeys(ctx, h.key).Result()
}

func (h *redisHash) Entries(ctx context.Context) (map[string]string, error) {
	return h.client.HGetAll(ctx, h.key).Result()
}

func (h *redisHash) Get(ctx context.Context, field string) (string, bool, error) {
	value, err := h.client.HGet(ctx, h.key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (h *redisHash) Set(ctx context.Context, field, value string) error {
	return h.client.HSet(ctx, h.key, field, value).Err()
}

func (h *redisHash) Delete(ctx context.Context, field string) error {
	return h.client.HDel(ctx, h.key, field).Err()
}

func (h *redisHash) Len(ctx context.Context) (int64, error) {
	return h.client.HLen(ctx, h.key).Result()
}

func (h *redisHash) Clear(ctx context.Context) error {
	return h.client.Del(ctx, h.key).Err()
}

type redisValue struct {
	client *redis.Client
	key    string
}

func (v *redisValue) Get(ctx context.Context) (string, bool, error) {
	value, err := v.client.Get(ctx, v.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (v *redisValue) Set(ctx context.Context, value string) error {
	return v.client.Set(ctx, v.key, value, 0).Err()
}

func (v *redisValue) Delete(ctx context.Context) error {
	return v.client.Del(ctx, v.key).Err()
}
