package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreDisk   = "disk"
	SessionStoreRedis  = "redis"
)

// DefaultHeartbeatInterval matches the backend's activity timeout budget.
const DefaultHeartbeatInterval = 5 * time.Minute

// Config is everything the CLI and the development backend read at startup.
type Config struct {
	APIBaseURL        string
	RequestTimeout    time.Duration
	HeartbeatInterval time.Duration
	Profile           string
	SessionStore      string
	SessionDir        string
	SessionTTL        time.Duration
	LogLevel          string
	LogFormat         string
	MetricsAddr       string
	Redis             RedisConfig
	FakeAPI           FakeAPIConfig
}

// RedisConfig configures the optional Redis session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FakeAPIConfig configures the in-repo development backend.
type FakeAPIConfig struct {
	Addr          string
	JWTSigningKey string
	TokenTTL      time.Duration
	Seed          bool
}

// Load reads defaults, then the optional config file, then SAFESHIFT_*
// environment variables. An explicit file path that does not exist is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SAFESHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".safeshift"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		APIBaseURL:        strings.TrimRight(v.GetString("api.base_url"), "/"),
		RequestTimeout:    v.GetDuration("api.timeout"),
		HeartbeatInterval: v.GetDuration("session.heartbeat_interval"),
		Profile:           v.GetString("session.profile"),
		SessionStore:      v.GetString("session.store"),
		SessionDir:        expand(v.GetString("session.dir")),
		SessionTTL:        v.GetDuration("session.ttl"),
		LogLevel:          v.GetString("log.level"),
		LogFormat:         v.GetString("log.format"),
		MetricsAddr:       v.GetString("metrics.addr"),
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		FakeAPI: FakeAPIConfig{
			Addr:          v.GetString("fakeapi.addr"),
			JWTSigningKey: v.GetString("fakeapi.jwt_signing_key"),
			TokenTTL:      v.GetDuration("fakeapi.token_ttl"),
			Seed:          v.GetBool("fakeapi.seed"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("session.heartbeat_interval must be positive")
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreDisk:
	case SessionStoreRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required when session.store is redis")
		}
	default:
		return fmt.Errorf("unknown session.store %q", c.SessionStore)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://127.0.0.1:8000")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("session.heartbeat_interval", DefaultHeartbeatInterval)
	v.SetDefault("session.profile", "default")
	v.SetDefault("session.store", SessionStoreDisk)
	v.SetDefault("session.dir", "~/.safeshift/session")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("fakeapi.addr", ":8000")
	v.SetDefault("fakeapi.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("fakeapi.token_ttl", 7*24*time.Hour)
	v.SetDefault("fakeapi.seed", true)
}

func expand(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return os.ExpandEnv(path)
}
