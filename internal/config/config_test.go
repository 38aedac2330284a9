package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so tests start from defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EV8_API_URL", "PRIVATE_KEY", "HTTP_TIMEOUT_SEC", "STRICT_AUTH",
		"POLL_INTERVAL_SEC", "POLL_TIMEOUT_SEC", "CACHE_BACKEND", "REDIS_ADDR",
		"REDIS_PASSWORD", "CACHE_NAMESPACE", "CACHE_TTL_SEC", "RPC_URL",
		"LOG_LEVEL", "LOG_FILE", "MOCK_PORT", "MOCK_CONFIRM_AFTER", "MOCK_AUTH_WINDOW_SEC",
		"MOCK_CHAT_RATE", "MOCK_CHAT_BURST",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "http://localhost:5000" {
		t.Errorf("API.URL: %q", cfg.API.URL)
	}
	if cfg.Poll.Interval() != 5*time.Second || cfg.Poll.Timeout() != 300*time.Second {
		t.Errorf("poll: %v / %v", cfg.Poll.Interval(), cfg.Poll.Timeout())
	}
	if cfg.API.HTTPTimeout() != 30*time.Second {
		t.Errorf("http timeout: %v", cfg.API.HTTPTimeout())
	}
	if cfg.Cache.Backend != "memory" || cfg.Log.Level != "info" || cfg.Log.File != "echolink_client.log" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.API.StrictAuth {
		t.Error("strict auth should default to false")
	}
	if cfg.Mock.Port != 5000 || cfg.Mock.ConfirmAfter != 2 || cfg.Mock.ChatRate != 0 {
		t.Errorf("mock defaults: %+v", cfg.Mock)
	}
}

func TestLoad_MockSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOCK_PORT", "8088")
	t.Setenv("MOCK_CHAT_RATE", "0.5")
	t.Setenv("MOCK_CHAT_BURST", "2")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mock.Port != 8088 || cfg.Mock.ChatRate != 0.5 || cfg.Mock.ChatBurst != 2 {
		t.Errorf("mock: %+v", cfg.Mock)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EV8_API_URL", "https://api.example.com")
	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("POLL_INTERVAL_SEC", "2")
	t.Setenv("POLL_TIMEOUT_SEC", "60")
	t.Setenv("STRICT_AUTH", "true")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("CACHE_TTL_SEC", "3600")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "https://api.example.com" || cfg.API.PrivateKey != "0xabc" {
		t.Errorf("api: %+v", cfg.API)
	}
	if cfg.Poll.IntervalSec != 2 || cfg.Poll.TimeoutSec != 60 {
		t.Errorf("poll: %+v", cfg.Poll)
	}
	if !cfg.API.StrictAuth {
		t.Error("STRICT_AUTH not applied")
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "cache:6380" || cfg.Cache.TTL() != time.Hour {
		t.Errorf("cache: %+v", cfg.Cache)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "EV8_API_URL=http://from-file:5000\nPRIVATE_KEY=0xfile\nPOLL_TIMEOUT_SEC=42\n")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "http://from-file:5000" || cfg.API.PrivateKey != "0xfile" || cfg.Poll.TimeoutSec != 42 {
		t.Errorf("file values not applied: %+v", cfg)
	}

	// process environment wins over the file
	t.Setenv("EV8_API_URL", "http://from-env")
	cfg, err = Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "http://from-env" {
		t.Errorf("env should override file, got %q", cfg.API.URL)
	}
}

func TestLoad_SkipEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "EV8_API_URL=http://from-file\n")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "http://localhost:5000" {
		t.Errorf("env file should be ignored, got %q", cfg.API.URL)
	}
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env"), false); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"CACHE_BACKEND":     "memcached",
		"POLL_INTERVAL_SEC": "0",
		"POLL_TIMEOUT_SEC":  "-1",
		"CACHE_TTL_SEC":     "-5",
	}
	for env, val := range cases {
		t.Run(env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env, val)
			if _, err := Load("", true); err == nil {
				t.Fatalf("%s=%s: expected validation error", env, val)
			}
		})
	}
}
