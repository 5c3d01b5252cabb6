package persist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// NewRedisClient returns a configured go-redis client and validates the
// connection with PING.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// RedisBackend stores the snapshot in one hash, field per charger identity.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend builds backend over an existing client.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = "chargepilot:sessions"
	}
	return &RedisBackend{client: client, key: key}
}

// WriteSnapshot replaces the hash with the given records.
func (b *RedisBackend) WriteSnapshot(ctx context.Context, records map[string][]byte) error {
	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.key)
	if len(records) > 0 {
		fields := make(map[string]interface{}, len(records))
		for identity, data := range records {
			fields[identity] = data
		}
		pipe.HSet(ctx, b.key, fields)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ReadSnapshot returns all stored records; an absent key yields an empty map.
func (b *RedisBackend) ReadSnapshot(ctx context.Context) (map[string][]byte, error) {
	values, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}

	records := make(map[string][]byte, len(values))
	for identity, data := range values {
		records[identity] = []byte(data)
	}
	return records, nil
}
