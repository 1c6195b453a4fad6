package config

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("Expected error without JWT_SECRET")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("AI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Port != "5432" {
		t.Errorf("Expected postgres on 5432, got %s on %s", cfg.Database.Driver, cfg.Database.Port)
	}
	if !strings.HasPrefix(cfg.Database.DSN, "host=") {
		t.Errorf("Expected postgres DSN, got %s", cfg.Database.DSN)
	}
	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("Expected 15s fetch timeout, got %v", cfg.Fetch.Timeout)
	}
	if cfg.JWT.AccessExpiry != 15*time.Minute {
		t.Errorf("Expected 15m access expiry, got %v", cfg.JWT.AccessExpiry)
	}
}

func TestLoad_MySQL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DB_PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Port != "3306" || !strings.Contains(cfg.Database.DSN, "@tcp(") {
		t.Errorf("Expected mysql DSN on 3306, got %s", cfg.Database.DSN)
	}
}

func TestLoad_UnsupportedDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "oracle")
	if _, err := Load(); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", time.Minute},
		{"30s", 30 * time.Second},
		{"garbage", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.value)
		if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.expected {
			t.Errorf("getEnvDuration(%q): expected %v, got %v", tt.value, tt.expected, got)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("Unexpected list: %v", got)
	}
}

func TestSetupLogging(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := SetupLogging(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info to be disabled at warn level")
	}
	logger.Warn("dropped lines", "count", 2)
	if !strings.Contains(buf.String(), `"count":2`) {
		t.Errorf("Expected JSON output, got %s", buf.String())
	}
}
