/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vogo/vogo/vlog"
)

const (
	// Redis cache key: shorturl:cache:{hash}
	cacheKeyPrefix = "shorturl:cache:"

	DefaultCacheTTL = time.Hour
)

// RedisURLCache implements cores.URLCache interface with Redis storage
type RedisURLCache struct {
	redis     *redis.Client
	keyPrefix string
	ttl       time.Duration
}

type CacheOption func(c *RedisURLCache)

func WithCacheKeyPrefix(prefix string) CacheOption {
	return func(c *RedisURLCache) {
		c.keyPrefix = prefix
	}
}

// WithCacheTTL sets the expiration of cached entries.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *RedisURLCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisURLCache creates a new RedisURLCache
func NewRedisURLCache(redisClient *redis.Client, opts ...CacheOption) *RedisURLCache {
	c := &RedisURLCache{
		redis: redisClient,
		ttl:   DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// getCacheKey returns the Redis key of the given hash
func (c *RedisURLCache) getCacheKey(hash string) string {
	return c.keyPrefix + cacheKeyPrefix + hash
}

// Get implements cores.URLCache.Get
func (c *RedisURLCache) Get(ctx context.Context, hash string) (string, bool) {
	url, err := c.redis.Get(ctx, c.getCacheKey(hash)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			vlog.Warnf("get cached url failed, hash: %s, err: %v", hash, err)
		}
		return "", false
	}

	return url, true
}

// Add implements cores.URLCache.Add
func (c *RedisURLCache) Add(ctx context.Context, hash string, url string) error {
	return c.redis.Set(ctx, c.getCacheKey(hash), url, c.ttl).Err()
}

// Remove implements cores.URLCache.Remove
func (c *RedisURLCache) Remove(ctx context.Context, hash string) error {
	return c.redis.Del(ctx, c.getCacheKey(hash)).Err()
}
