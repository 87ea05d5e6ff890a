// Package config loads settings from vaniya.yaml, a .env file and VANIYA_ environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Broadcast drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Strict    bool            `mapstructure:"strict"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type StoreConfig struct {
	Path       string `mapstructure:"path"`
	Namespace  string `mapstructure:"namespace"`
	QuotaBytes int64  `mapstructure:"quota_bytes"`
}

type BroadcastConfig struct {
	Driver  string      `mapstructure:"driver"`
	Channel string      `mapstructure:"channel"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RemoteConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Region   string        `mapstructure:"region"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Tables   RemoteTables  `mapstructure:"tables"`
}

type RemoteTables struct {
	Products  string `mapstructure:"products"`
	Orders    string `mapstructure:"orders"`
	Customers string `mapstructure:"customers"`
	Merchants string `mapstructure:"merchants"`
}

type SeedConfig struct {
	MinProducts  int `mapstructure:"min_products"`
	MinMerchants int `mapstructure:"min_merchants"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.path", "vaniya.db")
	v.SetDefault("store.namespace", "vaniya_sql_")
	v.SetDefault("store.quota_bytes", 5<<20)
	v.SetDefault("broadcast.driver", DriverMemory)
	v.SetDefault("broadcast.channel", "vaniya_sync")
	v.SetDefault("broadcast.redis.addr", "localhost:6379")
	v.SetDefault("broadcast.redis.password", "")
	v.SetDefault("broadcast.redis.db", 0)
	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.region", "us-east-1")
	v.SetDefault("remote.endpoint", "")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("remote.tables.products", "products")
	v.SetDefault("remote.tables.orders", "orders")
	v.SetDefault("remote.tables.customers", "customers")
	v.SetDefault("remote.tables.merchants", "merchants")
	v.SetDefault("seed.min_products", 100)
	v.SetDefault("seed.min_merchants", 3)
	v.SetDefault("strict", false)
	v.SetDefault("http.addr", ":8080")
}

// Load reads configuration. An empty path searches ., ./deploy and $HOME/.vaniya for
// vaniya.yaml; a missing file there is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vaniya")
		v.SetConfigType("yaml")
		v.AddConfigPath("./")
		v.AddConfigPath("./deploy/")
		v.AddConfigPath("$HOME/.vaniya/")
	}

	v.SetEnvPrefix("VANIYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Development logging follows env unless set explicitly.
	development := v.GetString("env") == "development"
	if v.IsSet("log.development") {
		development = v.GetBool("log.development")
	}
	v.Set("log.development", development)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Broadcast.Driver {
	case DriverMemory, DriverRedis, DriverNone:
	default:
		return fmt.Errorf("broadcast.driver %q: must be one of memory, redis, none", c.Broadcast.Driver)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Store.Namespace == "" {
		return errors.New("store.namespace is required")
	}
	if c.Store.QuotaBytes <= 0 {
		return fmt.Errorf("store.quota_bytes must be positive, got %d", c.Store.QuotaBytes)
	}
	if c.Broadcast.Driver == DriverRedis && c.Broadcast.Redis.Addr == "" {
		return errors.New("broadcast.redis.addr is required for the redis driver")
	}
	return nil
}
