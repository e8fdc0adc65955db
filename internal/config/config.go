package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups shared by the server, worker
// and scheduler processes.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Postgres  PostgresConfig  `mapstructure:"postgres" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache" validate:"required"`
	Scraper   ScraperConfig   `mapstructure:"scraper" validate:"required"`
	Worker    WorkerConfig    `mapstructure:"worker" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// PostgresConfig contains the connection parameters of the results database.
type PostgresConfig struct {
	Host         string `mapstructure:"host" validate:"required"`
	Port         int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	DBName       string `mapstructure:"db_name" validate:"required"`
	User         string `mapstructure:"user" validate:"required"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"ssl_mode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// URL builds a postgres:// connection string understood by the pgx driver.
func (c PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// RedisConfig contains the connection parameters of the cache/broker.
// One Redis server hosts three logical databases: the response cache,
// the task broker and the task result backend.
type RedisConfig struct {
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Host      string `mapstructure:"host" validate:"required"`
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	CacheDB   int    `mapstructure:"cache_db" validate:"gte=0,lte=15"`
	BrokerDB  int    `mapstructure:"broker_db" validate:"gte=0,lte=15"`
	BackendDB int    `mapstructure:"backend_db" validate:"gte=0,lte=15"`
}

// URL builds a redis:// connection string for the given logical database.
func (c RedisConfig) URL(db int) string {
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   fmt.Sprintf("/%d", db),
	}
	if c.User != "" || c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

// CacheURL returns the connection string of the response cache database.
func (c RedisConfig) CacheURL() string { return c.URL(c.CacheDB) }

// BrokerURL returns the connection string of the task broker database.
func (c RedisConfig) BrokerURL() string { return c.URL(c.BrokerDB) }

// BackendURL returns the connection string of the task result database.
func (c RedisConfig) BackendURL() string { return c.URL(c.BackendDB) }

// CacheConfig controls how long API responses stay cached.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// ScraperConfig contains settings of the bulletin scraper.
type ScraperConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	StartPath      string        `mapstructure:"start_path" validate:"required,startswith=/"`
	DownloadDir    string        `mapstructure:"download_dir" validate:"required"`
	Concurrency    int           `mapstructure:"concurrency" validate:"gt=0"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	UserAgent      string        `mapstructure:"user_agent" validate:"required"`
	// StopYear ends the listing walk once a bulletin from this year or
	// earlier is reached.
	StopYear int `mapstructure:"stop_year" validate:"gte=0"`
}

// WorkerConfig contains settings of the background task worker.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"gt=0"`
	QueueSize   int           `mapstructure:"queue_size" validate:"gt=0"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
	ResultTTL   time.Duration `mapstructure:"result_ttl" validate:"gt=0"`
}

// SchedulerConfig contains the periodic task schedule.
type SchedulerConfig struct {
	ResetCacheSpec    string        `mapstructure:"reset_cache_spec" validate:"required"`
	ResetCacheExpires time.Duration `mapstructure:"reset_cache_expires" validate:"gt=0"`
	Timezone          string        `mapstructure:"timezone" validate:"required"`
}
