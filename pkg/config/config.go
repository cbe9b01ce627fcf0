// Copyright 2025 gurr-i
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads runtime configuration from file and environment.
// Every key can come from a config file, a TGSAVER_* environment variable
// or (via godotenv in main) a .env file, in that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// 🔐 ClientConfig holds remote service credentials
type ClientConfig struct {
	Name         string // Registered client implementation to use
	BaseURL      string // Service root URL
	Token        string // Standard access token
	PrivateToken string // Elevated-capability token for private sources
}

// 📁 StagingConfig controls the on-disk staging area
type StagingConfig struct {
	Dir         string
	SweepMaxAge time.Duration // Staged files older than this are swept
}

// 🚚 TransferConfig tunes the item pipeline
type TransferConfig struct {
	Slots       int           // Concurrent transfer slots
	ItemDelay   time.Duration // Spacing between consecutive batch items
	MaxItemSize int64         // Size ceiling per item in bytes
	RetryBase   time.Duration
	RetryMax    time.Duration
}

// ⏱️ RateConfig tunes per-requester admission
type RateConfig struct {
	Window   time.Duration
	Capacity int
}

// 🗄️ RedisConfig points at the optional snapshot store
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// 🩺 HealthConfig controls the embedded status server
type HealthConfig struct {
	Enabled bool
	Port    int
}

// 🛠️ Config is the full runtime configuration
type Config struct {
	Client   ClientConfig
	Staging  StagingConfig
	Transfer TransferConfig
	Rate     RateConfig
	Redis    RedisConfig
	Health   HealthConfig
	LogLevel string
}

// 🎯 Load reads configuration from the given file (optional) plus the
// environment and fills in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TGSAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("client.name", "http")
	v.SetDefault("staging.dir", "staging")
	v.SetDefault("staging.sweep_max_age", "24h")
	v.SetDefault("transfer.slots", 3)
	v.SetDefault("transfer.item_delay", "300ms")
	v.SetDefault("transfer.max_item_size", int64(2<<30))
	v.SetDefault("transfer.retry_base", "1s")
	v.SetDefault("transfer.retry_max", "60s")
	v.SetDefault("rate.window", "60s")
	v.SetDefault("rate.capacity", 20)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("health.enabled", false)
	v.SetDefault("health.port", 8080)
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("tgsaver")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tgsaver")
		// A missing config file is fine, env and defaults still apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{
		Client: ClientConfig{
			Name:         v.GetString("client.name"),
			BaseURL:      v.GetString("client.base_url"),
			Token:        v.GetString("client.token"),
			PrivateToken: v.GetString("client.private_token"),
		},
		Staging: StagingConfig{
			Dir:         v.GetString("staging.dir"),
			SweepMaxAge: v.GetDuration("staging.sweep_max_age"),
		},
		Transfer: TransferConfig{
			Slots:       v.GetInt("transfer.slots"),
			ItemDelay:   v.GetDuration("transfer.item_delay"),
			MaxItemSize: v.GetInt64("transfer.max_item_size"),
			RetryBase:   v.GetDuration("transfer.retry_base"),
			RetryMax:    v.GetDuration("transfer.retry_max"),
		},
		Rate: RateConfig{
			Window:   v.GetDuration("rate.window"),
			Capacity: v.GetInt("rate.capacity"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Health: HealthConfig{
			Enabled: v.GetBool("health.enabled"),
			Port:    v.GetInt("health.port"),
		},
		LogLevel: v.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// 🔍 Validate checks structural invariants. Credential checks live in
// ValidateCredentials because offline commands do not need them.
func (c *Config) Validate() error {
	if c.Transfer.Slots < 1 {
		return errors.New("transfer.slots must be at least 1")
	}
	if c.Transfer.MaxItemSize < 1 {
		return errors.New("transfer.max_item_size must be positive")
	}
	if c.Rate.Capacity < 1 {
		return errors.New("rate.capacity must be at least 1")
	}
	if c.Rate.Window <= 0 {
		return errors.New("rate.window must be positive")
	}
	if c.Transfer.RetryBase <= 0 || c.Transfer.RetryMax < c.Transfer.RetryBase {
		return errors.New("transfer retry bounds must satisfy 0 < base <= max")
	}
	if c.Health.Enabled && (c.Health.Port < 1 || c.Health.Port > 65535) {
		return errors.Errorf("health.port %d out of range", c.Health.Port)
	}
	return nil
}

// ValidateCredentials checks that the remote client can authenticate
func (c *Config) ValidateCredentials() error {
	if c.Client.BaseURL == "" {
		return errors.New("client.base_url is required")
	}
	if c.Client.Token == "" && c.Client.PrivateToken == "" {
		return errors.New("one of client.token or client.private_token is required")
	}
	return nil
}
