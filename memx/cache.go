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

package memx

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 10000
	DefaultCacheTTL  = time.Hour
)

// MemoryURLCache implements cores.URLCache with an in-process expirable LRU
type MemoryURLCache struct {
	lru *expirable.LRU[string, string]
}

// NewMemoryURLCache creates a MemoryURLCache holding at most size entries for ttl each.
// Non-positive arguments fall back to the defaults.
func NewMemoryURLCache(size int, ttl time.Duration) *MemoryURLCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &MemoryURLCache{
		lru: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// Get implements cores.URLCache.Get
func (c *MemoryURLCache) Get(_ context.Context, hash string) (string, bool) {
	return c.lru.Get(hash)
}

// Add implements cores.URLCache.Add
func (c *MemoryURLCache) Add(_ context.Context, hash string, url string) error {
	c.lru.Add(hash, url)
	return nil
}

// Remove implements cores.URLCache.Remove
func (c *MemoryURLCache) Remove(_ context.Context, hash string) error {
	c.lru.Remove(hash)
	return nil
}

func (c *MemoryURLCache) Len() int {
	return c.lru.Len()
}
