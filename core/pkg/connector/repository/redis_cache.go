package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a read-through cache in front of an InMemory Repository,
// backed by redis/go-redis/v9. It is not a persistence layer: every
// Save/Remove writes through to the in-memory map first, and the cache is
// fully repopulated by the loader's initial priming pass on process
// restart.
type RedisCache[V any] struct {
	backing Repository[V]
	client  *redis.Client
	prefix  string
	ttl     time.Duration

	encode func(V) ([]byte, error)
	decode func([]byte) (V, error)
}

// NewRedisCache wraps backing with a redis read-through cache. encode/
// decode let callers plug in whatever (de)serialization their V needs;
// the connector daemon uses plain encoding/json.
func NewRedisCache[V any](backing Repository[V], client *redis.Client, prefix string, ttl time.Duration, encode func(V) ([]byte, error), decode func([]byte) (V, error)) *RedisCache[V] {
	return &RedisCache[V]{backing: backing, client: client, prefix: prefix, ttl: ttl, encode: encode, decode: decode}
}

func (c *RedisCache[V]) List() []string {
	return c.backing.List()
}

func (c *RedisCache[V]) Get(id string) (V, bool) {
	ctx := context.Background()
	raw, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err == nil {
		if v, decErr := c.decode(raw); decErr == nil {
			return v, true
		}
	}

	v, ok := c.backing.Get(id)
	if ok {
		if raw, encErr := c.encode(v); encErr == nil {
			c.client.Set(ctx, c.prefix+id, raw, c.ttl)
		}
	}
	return v, ok
}

func (c *RedisCache[V]) Save(id string, value V) {
	c.backing.Save(id, value)
	ctx := context.Background()
	if raw, err := c.encode(value); err == nil {
		c.client.Set(ctx, c.prefix+id, raw, c.ttl)
	}
}

func (c *RedisCache[V]) Remove(id string) {
	c.backing.Remove(id)
	c.client.Del(context.Background(), c.prefix+id)
}

// JSONEncode and JSONDecode are convenience (de)serializers for V types
// that round-trip cleanly through encoding/json.
func JSONEncode[V any](v V) ([]byte, error) { return json.Marshal(v) }

func JSONDecode[V any](raw []byte) (V, error) {
	var v V
	err := json.Unmarshal(raw, &v)
	return v, err
}
