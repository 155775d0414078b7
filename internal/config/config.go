package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Env  string
	Port int

	StorageDriver string
	DBURL         string
	SQLitePath    string
	RunMigrations bool

	JWTSecret          string
	JWTTTLMinutes      int
	CookieMaxAgeMinute int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int
	// CacheLocal turns on the in-process user cache when no redis is set.
	// It is only safe for single-replica deployments.
	CacheLocal bool

	OtelEnabled  bool
	OtelEndpoint string

	CORSAllowedOrigins      []string
	AuthRateLimitPerMinute  int
	WriteRateLimitPerMinute int
	MaxBodyBytes            int64

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads the process environment. A .env file in the working directory
// is merged in first when present; real env vars win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "err", err)
	}

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		DBURL:         getEnv("DATABASE_URL", buildDBURL()),
		SQLitePath:    getEnv("SQLITE_PATH", "userhub.db"),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTLMinutes:      getEnvInt("JWT_TTL_MINUTES", 24*60),
		CookieMaxAgeMinute: getEnvInt("COOKIE_MAX_AGE_MINUTES", 15),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 30),
		CacheLocal:      getEnvBool("CACHE_LOCAL", false),

		OtelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		CORSAllowedOrigins:      getEnvList("CORS_ALLOWED_ORIGINS"),
		AuthRateLimitPerMinute:  getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		WriteRateLimitPerMinute: getEnvInt("WRITE_RATE_LIMIT_PER_MINUTE", 120),
		MaxBodyBytes:            int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.JWTSecret == "" && c.Env != "dev" && c.Env != "test" {
		return errors.New("JWT_SECRET is required outside dev/test")
	}

	if c.JWTTTLMinutes <= 0 {
		return errors.New("JWT_TTL_MINUTES must be positive")
	}

	return nil
}

func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c Config) CookieMaxAge() time.Duration {
	return time.Duration(c.CookieMaxAgeMinute) * time.Minute
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) SecureCookies() bool {
	return c.Env == "prod"
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "userhub")
	pass := getEnv("DB_PASSWORD", "userhub")
	name := getEnv("DB_NAME", "userhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// WithTimeout bounds a store call; a nil parent means context.Background.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
