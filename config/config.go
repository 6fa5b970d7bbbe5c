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

// Package config loads the server configuration.
//
// Sources are applied in order, later ones win:
//
//	built-in defaults
//	YAML file (--config, default short-url-server.yaml)
//	environment variables prefixed with SHORTURL_
//	command-line flags
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/vogo/vogo/vos"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "short-url-server.yaml"

	envPrefix = "SHORTURL_"

	StorageFile  = "file"
	StorageMySQL = "mysql"

	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN returns the go-sql-driver data source name.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type CacheConfig struct {
	Kind string `yaml:"kind"`
	Size int    `yaml:"size"`
	TTL  int    `yaml:"ttl"` // seconds
}

type Config struct {
	Port int `yaml:"port"`

	// MaxConnections limits concurrent connections, -1 for unlimited.
	MaxConnections int `yaml:"max_connections"`

	DataPath    string `yaml:"data_path"`
	WebpagePath string `yaml:"webpage"`

	// SaveInterval is the period of the background save in seconds.
	SaveInterval int  `yaml:"save_interval"`
	SaveAsync    bool `yaml:"save_async"`

	HashWidth int `yaml:"hash_width"`

	// Timeout bounds reading a request and writing its response, in seconds.
	Timeout int `yaml:"timeout"`

	Storage string      `yaml:"storage"`
	MySQL   MySQLConfig `yaml:"mysql"`

	Cache CacheConfig `yaml:"cache"`
	Redis RedisConfig `yaml:"redis"`
}

func Default() *Config {
	return &Config{
		Port:           8080,
		MaxConnections: -1,
		DataPath:       "data/",
		WebpagePath:    "webpage.html",
		SaveInterval:   60,
		SaveAsync:      false,
		HashWidth:      6,
		Timeout:        120,
		Storage:        StorageFile,
		MySQL: MySQLConfig{
			Host:     "localhost",
			Port:     "3306",
			User:     "root",
			Database: "vshorturl",
		},
		Cache: CacheConfig{
			Kind: CacheNone,
			Size: 10000,
			TTL:  3600,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
	}
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) SaveIntervalDuration() time.Duration {
	return time.Duration(c.SaveInterval) * time.Second
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// Validate checks the ranges and enumerations of the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.MaxConnections == 0 || c.MaxConnections < -1 {
		errs = append(errs, fmt.Errorf("invalid max connections %d, use -1 for unlimited", c.MaxConnections))
	}
	if c.SaveInterval <= 0 {
		errs = append(errs, fmt.Errorf("invalid save interval %d", c.SaveInterval))
	}
	if c.HashWidth < 1 || c.HashWidth > 64 {
		errs = append(errs, fmt.Errorf("invalid hash width %d, expect 1..64", c.HashWidth))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid timeout %d", c.Timeout))
	}

	switch c.Storage {
	case StorageFile:
		if c.DataPath == "" {
			errs = append(errs, errors.New("data path is empty"))
		}
	case StorageMySQL:
	default:
		errs = append(errs, fmt.Errorf("invalid storage %q", c.Storage))
	}

	switch c.Cache.Kind {
	case CacheNone, CacheRedis:
	case CacheLRU:
		if c.Cache.Size <= 0 {
			errs = append(errs, fmt.Errorf("invalid cache size %d", c.Cache.Size))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid cache kind %q", c.Cache.Kind))
	}

	return errors.Join(errs...)
}

// Load builds the configuration from args (without the program name),
// the configuration file and the environment.
func Load(args []string) (*Config, error) {
	// the first pass only finds the configuration file
	probe := Default()
	configFile := DefaultConfigFile
	fs := newFlagSet(probe, &configFile)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := cfg.loadFile(configFile, fs.Changed("config")); err != nil {
		return nil, err
	}

	cfg.loadEnv()

	fs = newFlagSet(cfg, &configFile)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) loadEnv() {
	c.Port = vos.GetEnvInt(envPrefix+"PORT", c.Port)
	c.MaxConnections = vos.GetEnvInt(envPrefix+"MAX_CONNECTIONS", c.MaxConnections)
	c.DataPath = vos.GetEnvStr(envPrefix+"DATA_PATH", c.DataPath)
	c.WebpagePath = vos.GetEnvStr(envPrefix+"WEBPAGE", c.WebpagePath)
	c.SaveInterval = vos.GetEnvInt(envPrefix+"SAVE_INTERVAL", c.SaveInterval)
	c.SaveAsync = envBool(envPrefix+"SAVE_ASYNC", c.SaveAsync)
	c.HashWidth = vos.GetEnvInt(envPrefix+"HASH_WIDTH", c.HashWidth)
	c.Timeout = vos.GetEnvInt(envPrefix+"TIMEOUT", c.Timeout)
	c.Storage = vos.GetEnvStr(envPrefix+"STORAGE", c.Storage)

	c.MySQL.Host = vos.GetEnvStr(envPrefix+"MYSQL_HOST", c.MySQL.Host)
	c.MySQL.Port = vos.GetEnvStr(envPrefix+"MYSQL_PORT", c.MySQL.Port)
	c.MySQL.User = vos.GetEnvStr(envPrefix+"MYSQL_USER", c.MySQL.User)
	c.MySQL.Password = vos.GetEnvStr(envPrefix+"MYSQL_PASSWORD", c.MySQL.Password)
	c.MySQL.Database = vos.GetEnvStr(envPrefix+"MYSQL_DATABASE", c.MySQL.Database)

	c.Cache.Kind = vos.GetEnvStr(envPrefix+"CACHE", c.Cache.Kind)
	c.Cache.Size = vos.GetEnvInt(envPrefix+"CACHE_SIZE", c.Cache.Size)
	c.Cache.TTL = vos.GetEnvInt(envPrefix+"CACHE_TTL", c.Cache.TTL)

	c.Redis.Host = vos.GetEnvStr(envPrefix+"REDIS_HOST", c.Redis.Host)
	c.Redis.Port = vos.GetEnvStr(envPrefix+"REDIS_PORT", c.Redis.Port)
	c.Redis.Password = vos.GetEnvStr(envPrefix+"REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = vos.GetEnvInt(envPrefix+"REDIS_DB", c.Redis.DB)
}

func envBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(vos.GetEnvStr(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// newFlagSet binds the flags to c, the current values of c are the flag defaults.
func newFlagSet(c *Config, configFile *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("short-url-server", pflag.ContinueOnError)

	fs.StringVarP(configFile, "config", "c", *configFile, "configuration file")
	fs.IntVarP(&c.Port, "port", "p", c.Port, "listen port")
	fs.IntVar(&c.MaxConnections, "max-connections", c.MaxConnections, "max concurrent connections, -1 for unlimited")
	fs.StringVar(&c.DataPath, "data-path", c.DataPath, "directory of the url record file")
	fs.StringVar(&c.WebpagePath, "webpage", c.WebpagePath, "html page served at /webpage")
	fs.IntVar(&c.SaveInterval, "save-interval", c.SaveInterval, "seconds between background saves")
	fs.BoolVar(&c.SaveAsync, "save-async", c.SaveAsync, "save in the background without blocking writers")
	fs.IntVar(&c.HashWidth, "hash-width", c.HashWidth, "hex characters of generated hashes")
	fs.IntVar(&c.Timeout, "timeout", c.Timeout, "request read and write timeout in seconds")
	fs.StringVar(&c.Storage, "storage", c.Storage, "record storage: file or mysql")
	fs.StringVar(&c.Cache.Kind, "cache", c.Cache.Kind, "redirect cache: none, lru or redis")
	fs.IntVar(&c.Cache.Size, "cache-size", c.Cache.Size, "lru cache entries")
	fs.IntVar(&c.Cache.TTL, "cache-ttl", c.Cache.TTL, "cache entry ttl in seconds")

	return fs
}
