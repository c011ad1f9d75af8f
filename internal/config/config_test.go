package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"API_PORT", "STORE_DRIVER", "POSTGRES_DSN", "DATABASE_URL", "DB_CONNECT_RETRIES",
		"DB_CONNECT_BACKOFF", "HISTORY_DEFAULT_LIMIT", "CORS_ALLOWED_ORIGINS", "API_RATE_LIMIT_RPS",
		"NATS_URL", "METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.APIPort != "8000" {
		t.Fatalf("expected default port 8000, got %q", cfg.APIPort)
	}
	if cfg.StoreDriver != "postgres" {
		t.Fatalf("expected default store postgres, got %q", cfg.StoreDriver)
	}
	if cfg.DBConnectRetries != 10 {
		t.Fatalf("expected 10 connect retries, got %d", cfg.DBConnectRetries)
	}
	if cfg.DBConnectBackoff != 2*time.Second {
		t.Fatalf("expected 2s connect backoff, got %s", cfg.DBConnectBackoff)
	}
	if cfg.HistoryDefaultLimit != 10 {
		t.Fatalf("expected history default limit 10, got %d", cfg.HistoryDefaultLimit)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS origin, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("expected rate limit disabled by default, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("expected events disabled by default, got %q", cfg.NATSURL)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("expected metrics enabled by default")
	}
}

func TestLoadFallsBackToDatabaseURL(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")

	cfg := Load()
	if cfg.PostgresDSN != "postgres://u:p@db:5432/app" {
		t.Fatalf("expected DATABASE_URL fallback, got %q", cfg.PostgresDSN)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_CONNECT_BACKOFF", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com ,")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_BACKPRESSURE_WAIT", "1s")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()
	if cfg.StoreDriver != "sqlite" {
		t.Fatalf("expected lowercased store driver, got %q", cfg.StoreDriver)
	}
	if cfg.DBConnectBackoff != 5*time.Second {
		t.Fatalf("expected bare seconds to parse, got %s", cfg.DBConnectBackoff)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://app.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIBackpressureWait != time.Second {
		t.Fatalf("expected 1s backpressure wait, got %s", cfg.APIBackpressureWait)
	}
	if cfg.MetricsEnabled {
		t.Fatalf("expected metrics disabled")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DB_CONNECT_RETRIES", "many")
	t.Setenv("DB_CONNECT_BACKOFF", "soon")

	cfg := Load()
	if cfg.DBConnectRetries != 10 {
		t.Fatalf("expected fallback retries, got %d", cfg.DBConnectRetries)
	}
	if cfg.DBConnectBackoff != 2*time.Second {
		t.Fatalf("expected fallback backoff, got %s", cfg.DBConnectBackoff)
	}
}
