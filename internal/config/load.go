package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvFile is the optional dotenv file consulted for values that are not
// set in the process environment.
const EnvFile = ".env"

// binding ties a configuration key to its environment variable and default.
type binding struct {
	key      string
	env      string
	fallback any
}

var bindings = []binding{
	{"server.port", "SERVER_PORT", 8000},
	{"server.log_level", "LOG_LEVEL", "info"},
	{"server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT", "10s"},

	{"postgres.host", "PG_HOST", "localhost"},
	{"postgres.port", "PG_PORT", 5432},
	{"postgres.db_name", "PG_DB_NAME", "mydb"},
	{"postgres.user", "PG_USER", "user"},
	{"postgres.password", "PG_PASSWORD", "password"},
	{"postgres.ssl_mode", "PG_SSL_MODE", "disable"},
	{"postgres.max_open_conns", "PG_MAX_OPEN_CONNS", 15},
	{"postgres.max_idle_conns", "PG_MAX_IDLE_CONNS", 5},

	{"redis.user", "REDIS_USER", "user"},
	{"redis.password", "REDIS_USER_PASSWORD", "password"},
	{"redis.host", "REDIS_HOST", "localhost"},
	{"redis.port", "REDIS_PORT", 6379},
	{"redis.cache_db", "REDIS_CACHE_DB", 0},
	{"redis.broker_db", "REDIS_BROKER_DB", 1},
	{"redis.backend_db", "REDIS_BACKEND_DB", 2},

	{"cache.ttl", "CACHE_TTL", "24h"},

	{"scraper.base_url", "SCRAPER_BASE_URL", "https://spimex.com"},
	{"scraper.start_path", "SCRAPER_START_PATH", "/markets/oil_products/trades/results/"},
	{"scraper.download_dir", "SCRAPER_DOWNLOAD_DIR", "downloads"},
	{"scraper.concurrency", "SCRAPER_CONCURRENCY", 100},
	{"scraper.timeout", "SCRAPER_TIMEOUT", "600s"},
	{"scraper.connect_timeout", "SCRAPER_CONNECT_TIMEOUT", "10s"},
	{"scraper.user_agent", "SCRAPER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.93 Safari/537.36"},
	{"scraper.stop_year", "SCRAPER_STOP_YEAR", 2022},

	{"worker.concurrency", "WORKER_CONCURRENCY", 2},
	{"worker.queue_size", "WORKER_QUEUE_SIZE", 100},
	{"worker.poll_timeout", "WORKER_POLL_TIMEOUT", "5s"},
	{"worker.result_ttl", "WORKER_RESULT_TTL", "24h"},

	{"scheduler.reset_cache_spec", "SCHEDULE_RESET_CACHE", "11 14 * * *"},
	{"scheduler.reset_cache_expires", "SCHEDULE_RESET_CACHE_EXPIRES", "300s"},
	{"scheduler.timezone", "SCHEDULE_TIMEZONE", "UTC"},
}

// Load reads configuration from defaults, the optional .env file and
// environment variables, in increasing order of precedence.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile(EnvFile)
}

// LoadFile is Load with an explicit dotenv path. An empty path or a
// missing file is not an error.
func LoadFile(envFile string) (*Config, error) {
	v := viper.New()

	fileValues, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}

	for _, b := range bindings {
		v.SetDefault(b.key, b.fallback)
		if fileValues != nil && fileValues.IsSet(b.env) {
			v.SetDefault(b.key, fileValues.Get(b.env))
		}
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b.env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func readEnvFile(path string) (*viper.Viper, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("env")
	if err := fv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return fv, nil
}
