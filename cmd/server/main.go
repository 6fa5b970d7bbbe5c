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

package main

import (
	"context"
	"errors"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/vogo/vogo/vlog"
	"github.com/vogo/vshorturl/config"
	"github.com/vogo/vshorturl/cores"
	"github.com/vogo/vshorturl/gormx"
	"github.com/vogo/vshorturl/memx"
	"github.com/vogo/vshorturl/redisx"
	"github.com/vogo/vshorturl/server"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		vlog.Fatalf("load config failed: %v", err)
	}

	ctx := context.Background()

	backend := newBackend(cfg)
	cache := newCache(ctx, cfg)

	store := cores.NewURLStore(cores.WithHashWidth(cfg.HashWidth))

	if err = store.LoadFrom(ctx, backend); err != nil {
		vlog.Fatalf("load records failed: %v", err)
	}

	// rewrite the snapshot so deletions replayed above are compacted away
	if err = store.SaveSyncTo(ctx, backend); err != nil {
		vlog.Fatalf("save records failed: %v", err)
	}

	if err = server.New(cfg, store, backend, cache).Run(ctx); err != nil {
		vlog.Fatalf("server stopped: %v", err)
	}

	vlog.Infof("server stopped")
}

func newBackend(cfg *config.Config) cores.Backend {
	if cfg.Storage != config.StorageMySQL {
		return cores.NewFileBackend(cfg.DataPath)
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		vlog.Fatalf("failed to connect to mysql: %v", err)
	}

	backend, err := gormx.NewGormSnapshotBackend(db)
	if err != nil {
		vlog.Fatalf("failed to migrate mysql tables: %v", err)
	}

	return backend
}

func newCache(ctx context.Context, cfg *config.Config) cores.URLCache {
	switch cfg.Cache.Kind {
	case config.CacheLRU:
		return memx.NewMemoryURLCache(cfg.Cache.Size, cfg.CacheTTLDuration())
	case config.CacheRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			vlog.Fatalf("failed to ping redis: %v", err)
		}

		return redisx.NewRedisURLCache(redisClient, redisx.WithCacheTTL(cfg.CacheTTLDuration()))
	default:
		return cores.NopCache{}
	}
}
