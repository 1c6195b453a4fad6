package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Argon2     Argon2Config
	CORS       CORSConfig
	Monitoring MonitoringConfig
	Fetch      FetchConfig
	AI         AIConfig
	Logging    LoggingConfig
	Cleanup    CleanupConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	SeedAdminSecret string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	DSN      string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type CORSConfig struct {
	Origins []string
}

type MonitoringConfig struct {
	PrometheusEnabled bool
}

// FetchConfig bounds response-sheet retrieval by URL.
type FetchConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

// AIConfig points at an OpenAI-compatible endpoint. An empty APIKey
// disables answer-key formatting.
type AIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type CleanupConfig struct {
	ResponseRetention time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	driver := strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	if driver != "postgres" && driver != "mysql" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	defaultPort := "5432"
	if driver == "mysql" {
		defaultPort = "3306"
	}

	db := DatabaseConfig{
		Driver:   driver,
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", defaultPort),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "scorecheck"),
	}
	db.DSN = getEnv("DATABASE_URL", buildDSN(db))

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             getEnv("ENV", "development"),
			SeedAdminSecret: getEnv("SEED_ADMIN_SECRET", ""),
		},
		Database: db,
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			AccessExpiry:  getEnvDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
		},
		Argon2: Argon2Config{
			Memory:      uint32(getEnvInt("ARGON2_MEMORY", 65536)),
			Iterations:  uint32(getEnvInt("ARGON2_ITERATIONS", 3)),
			Parallelism: uint8(getEnvInt("ARGON2_PARALLELISM", 2)),
			SaltLength:  uint32(getEnvInt("ARGON2_SALT_LENGTH", 16)),
			KeyLength:   uint32(getEnvInt("ARGON2_KEY_LENGTH", 32)),
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Monitoring: MonitoringConfig{
			PrometheusEnabled: getEnv("PROMETHEUS_ENABLED", "true") == "true",
		},
		Fetch: FetchConfig{
			Timeout:  getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
			MaxBytes: int64(getEnvInt("FETCH_MAX_BYTES", 10<<20)),
		},
		AI: AIConfig{
			BaseURL: getEnv("AI_BASE_URL", ""),
			APIKey:  getEnv("AI_API_KEY", ""),
			Model:   getEnv("AI_MODEL", "gpt-4o-mini"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Cleanup: CleanupConfig{
			ResponseRetention: getEnvDuration("RESPONSE_RETENTION", 90*24*time.Hour),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func buildDSN(db DatabaseConfig) string {
	if db.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			db.User, db.Password, db.Host, db.Port, db.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		db.Host, db.Port, db.User, db.Password, db.Name)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
