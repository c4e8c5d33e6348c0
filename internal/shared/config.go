package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver  string
	MySQLDSN     string
	MongoURI     string
	MongoDB      string
	StoreTimeout time.Duration
	StoreRetries int

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	AMQPURL string

	ObjectStoreURL       string
	ObjectStorePublicURL string
	ObjectStoreKey       string
	ObjectStoreRPS       int

	SeedFile    string
	SeedWorkers int
}

// Load reads an optional .env file, then the process environment. Real env vars win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		StoreDriver:  env("STORE_DRIVER", DriverMemory),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotels?parseTime=true&charset=utf8mb4&loc=UTC"),
		MongoURI:     env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      env("MONGO_DB", "hotels"),
		StoreTimeout: time.Duration(atoi("STORE_TIMEOUT_MS", 3000)) * time.Millisecond,
		StoreRetries: atoi("STORE_RETRIES", 3),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		AMQPURL: env("AMQP_URL", ""),

		ObjectStoreURL:       env("OBJECT_STORE_URL", ""),
		ObjectStorePublicURL: env("OBJECT_STORE_PUBLIC_URL", ""),
		ObjectStoreKey:       env("OBJECT_STORE_KEY", ""),
		ObjectStoreRPS:       atoi("OBJECT_STORE_RPS", 5),

		SeedFile:    env("SEED_FILE", "configs/catalog.yaml"),
		SeedWorkers: atoi("SEED_WORKERS", 8),
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; hotel cache disabled, idempotency keys kept in memory")
	}
	return c
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverMySQL, DriverMongo:
	default:
		return fmt.Errorf("STORE_DRIVER must be memory, mysql or mongo, got %q", c.StoreDriver)
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT_MS must be positive")
	}
	if c.StoreRetries < 1 {
		return errors.New("STORE_RETRIES must be at least 1")
	}
	if c.SeedWorkers < 1 {
		return errors.New("SEED_WORKERS must be at least 1")
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
