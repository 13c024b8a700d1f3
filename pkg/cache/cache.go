package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/social-timeline/config"
)

// New 按配置创建 redis 客户端；addr 为空返回 nil（缓存缺席时读路径直接打库）
func New(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Cache 读侧 JSON 缓存。client 为 nil 时所有操作退化为 miss/no-op，不影响正确性。
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// GetJSON 命中返回 true 并反序列化到 out
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	if payload, err := json.Marshal(v); err == nil {
		_ = c.rdb.Set(ctx, key, payload, c.ttl).Err()
	}
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}

// MGetJSON 批量取 key，返回 key -> 原始 JSON；miss 的 key 不出现在结果里
func (c *Cache) MGetJSON(ctx context.Context, keys []string) map[string]string {
	hit := make(map[string]string, len(keys))
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return hit
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return hit
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			hit[keys[i]] = str
		}
	}
	return hit
}
