package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// TimeZone is the location calendar days and practice hours are computed in.
	TimeZone string

	AuthJWTSecret    string
	AuthJWTIssuer    string
	InternalAPIToken string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis    RedisConfig
	Practice PracticeConfig

	FreeAffirmationLimit int
	UserCacheSize        int
	BadgeCatalogPath     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// PracticeConfig tunes per-user submission guards.
type PracticeConfig struct {
	RateLimitEnabled bool
	Rate             float64
	Burst            int
	LockTTL          time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "mindshift"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      getenv("ENVIRONMENT", "development"),
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		TimeZone:         getenv("APP_TIMEZONE", "UTC"),
		AuthJWTSecret:    strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthJWTIssuer:    strings.TrimSpace(getenv("AUTH_JWT_ISSUER", "")),
		InternalAPIToken: strings.TrimSpace(getenv("INTERNAL_API_TOKEN", "")),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "mindshift"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Practice: PracticeConfig{
			RateLimitEnabled: getenvBool("PRACTICE_RATE_LIMIT_ENABLED", true),
			Rate:             getenvFloat("PRACTICE_RATE", 1),
			Burst:            getenvInt("PRACTICE_BURST", 10),
			LockTTL:          time.Duration(getenvInt("PRACTICE_LOCK_TTL_SECONDS", 10)) * time.Second,
		},

		FreeAffirmationLimit: getenvInt("FREE_AFFIRMATION_LIMIT", 10),
		UserCacheSize:        getenvInt("USER_CACHE_SIZE", 4096),
		BadgeCatalogPath:     strings.TrimSpace(getenv("BADGE_CATALOG_PATH", "")),
	}

	return cfg
}

// Location resolves TimeZone, falling back to UTC.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.TimeZone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
