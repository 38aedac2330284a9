package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultEnvFile is read when present and no explicit file is given.
const DefaultEnvFile = "configs/.env"

type Config struct {
	API   APIConfig
	Poll  PollConfig
	Cache CacheConfig
	Chain ChainConfig
	Log   LogConfig
	Mock  MockConfig
}

type APIConfig struct {
	URL            string `mapstructure:"url"`
	PrivateKey     string `mapstructure:"private_key"`
	HTTPTimeoutSec int64  `mapstructure:"http_timeout_sec"`
	StrictAuth     bool   `mapstructure:"strict_auth"`
}

type PollConfig struct {
	IntervalSec int64 `mapstructure:"interval_sec"`
	TimeoutSec  int64 `mapstructure:"timeout_sec"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	Namespace     string `mapstructure:"namespace"`
	TTLSec        int64  `mapstructure:"ttl_sec"`
}

type ChainConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MockConfig struct {
	Port          int     `mapstructure:"port"`
	ConfirmAfter  int     `mapstructure:"confirm_after"`
	AuthWindowSec int     `mapstructure:"auth_window_sec"`
	ChatRate      float64 `mapstructure:"chat_rate"`
	ChatBurst     int     `mapstructure:"chat_burst"`
}

func (p PollConfig) Interval() time.Duration { return time.Duration(p.IntervalSec) * time.Second }
func (p PollConfig) Timeout() time.Duration  { return time.Duration(p.TimeoutSec) * time.Second }
func (a APIConfig) HTTPTimeout() time.Duration {
	return time.Duration(a.HTTPTimeoutSec) * time.Second
}
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// Load builds the configuration from defaults, an optional dotenv file and
// the process environment (highest precedence).
//
// envFile == "" reads DefaultEnvFile if it exists; a non-empty envFile must
// exist. Set skipEnvFile to ignore dotenv files entirely.
func Load(envFile string, skipEnvFile bool) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("api.url", "http://localhost:5000")
	v.SetDefault("api.http_timeout_sec", 30)
	v.SetDefault("api.strict_auth", false)
	v.SetDefault("poll.interval_sec", 5)
	v.SetDefault("poll.timeout_sec", 300)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "echolink_client.log")
	v.SetDefault("mock.port", 5000)
	v.SetDefault("mock.confirm_after", 2)
	v.SetDefault("mock.auth_window_sec", 300)
	v.SetDefault("mock.chat_rate", 0)
	v.SetDefault("mock.chat_burst", 5)

	bindings := map[string]string{
		"api.url":              "EV8_API_URL",
		"api.private_key":      "PRIVATE_KEY",
		"api.http_timeout_sec": "HTTP_TIMEOUT_SEC",
		"api.strict_auth":      "STRICT_AUTH",
		"poll.interval_sec":    "POLL_INTERVAL_SEC",
		"poll.timeout_sec":     "POLL_TIMEOUT_SEC",
		"cache.backend":        "CACHE_BACKEND",
		"cache.redis_addr":     "REDIS_ADDR",
		"cache.redis_password": "REDIS_PASSWORD",
		"cache.namespace":      "CACHE_NAMESPACE",
		"cache.ttl_sec":        "CACHE_TTL_SEC",
		"chain.rpc_url":        "RPC_URL",
		"log.level":            "LOG_LEVEL",
		"log.file":             "LOG_FILE",
		"mock.port":            "MOCK_PORT",
		"mock.confirm_after":   "MOCK_CONFIRM_AFTER",
		"mock.auth_window_sec": "MOCK_AUTH_WINDOW_SEC",
		"mock.chat_rate":       "MOCK_CHAT_RATE",
		"mock.chat_burst":      "MOCK_CHAT_BURST",
	}

	if !skipEnvFile {
		if err := readEnvFile(v, envFile, bindings); err != nil {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.validate()
}

// readEnvFile loads KEY=VALUE pairs and maps the known keys onto their
// config paths as defaults, so real environment variables still win.
func readEnvFile(v *viper.Viper, path string, bindings map[string]string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}

	f := viper.New()
	f.SetConfigFile(path)
	f.SetConfigType("env")
	if err := f.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	for key, env := range bindings {
		// the env parser lower-cases keys
		if f.IsSet(strings.ToLower(env)) {
			v.SetDefault(key, f.Get(strings.ToLower(env)))
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q (want memory or redis)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("required config missing: REDIS_ADDR")
	}
	for _, r := range []struct {
		val  int64
		name string
	}{
		{c.Poll.IntervalSec, "POLL_INTERVAL_SEC"},
		{c.Poll.TimeoutSec, "POLL_TIMEOUT_SEC"},
		{c.API.HTTPTimeoutSec, "HTTP_TIMEOUT_SEC"},
	} {
		if r.val <= 0 {
			return fmt.Errorf("%s must be positive", r.name)
		}
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("CACHE_TTL_SEC must not be negative")
	}
	if c.API.URL == "" {
		return fmt.Errorf("required config missing: EV8_API_URL")
	}
	return nil
}
