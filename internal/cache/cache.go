package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"

	"github.com/huntlog/internal/config"
)

// Cache 封装 ristretto，为热点读路径（报告快照、统计汇总）提供进程内缓存。
// Enabled=false 时返回 nil，所有调用方都需容忍 nil 接收者。
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New 根据配置构造缓存实例；禁用时返回 (nil, nil)。
func New(cfg config.CacheConfig) (*Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Msg("cache initialized")

	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// Get 读取缓存值，未命中返回 (nil, false)。
func (c *Cache) Get(key string) (interface{}, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	return c.client.Get(key)
}

// Set 以配置的 TTL 写入缓存，cost 表示条目开销（简单对象用 1）。
func (c *Cache) Set(key string, value interface{}, cost int64) bool {
	if c == nil || c.client == nil {
		return false
	}
	ok := c.client.SetWithTTL(key, value, cost, c.ttl)
	if ok {
		// ristretto 写入是异步的，等待缓冲刷新保证读己之写
		c.client.Wait()
	}
	return ok
}

// SetForever 写入不过期的缓存项，用于不可变对象（如报告快照）。
func (c *Cache) SetForever(key string, value interface{}, cost int64) bool {
	if c == nil || c.client == nil {
		return false
	}
	ok := c.client.SetWithTTL(key, value, cost, 0)
	if ok {
		c.client.Wait()
	}
	return ok
}

// Delete 移除缓存项。
func (c *Cache) Delete(key string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(key)
}

// Close 关闭缓存并释放资源。
func (c *Cache) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Close()
}
