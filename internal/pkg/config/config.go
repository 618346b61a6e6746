package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Store StoreConfig
	Mongo MongoConfig
	Redis RedisConfig
}

// StoreConfig selects where shipment records live: "http" fronts the remote
// shipment backend, "mongo" runs against the console's own database.
type StoreConfig struct {
	Mode           string        `env:"STORE_MODE,            default=http"`
	BaseURL        string        `env:"STORE_BASE_URL,        default=http://localhost:9090"`
	RequestTimeout time.Duration `env:"STORE_REQUEST_TIMEOUT, default=10s"`
	RetryBackoff   time.Duration `env:"STORE_RETRY_BACKOFF,   default=500ms"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=import_console"`
}

type RedisConfig struct {
	Addr    string `env:"REDIS_ADDR,    default=localhost:6379"`
	DB      int    `env:"REDIS_DB,      default=0"`
	Enabled bool   `env:"REDIS_ENABLED, default=true"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
