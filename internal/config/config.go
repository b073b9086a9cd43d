// internal/config/config.go
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from the environment (a .env
// file is loaded by the entrypoint before parsing).
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// SecretKey signs session tokens. Every process of a deployment must
	// share it.
	SecretKey string `env:"SECRET_KEY" envDefault:"insecure-dev-secret"`

	// StorageBackend selects where lobby state lives: memory, redis or
	// postgres. Memory is single-process only.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	PostgresDSN    string `env:"POSTGRES_DSN"`

	MaxLobbyParticipants int           `env:"MAX_LOBBY_PARTICIPANTS" envDefault:"8"`
	EvictAfter           time.Duration `env:"DISCONNECT_EVICT_AFTER" envDefault:"15s"`
	PingInterval         time.Duration `env:"PING_INTERVAL" envDefault:"5s"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	return env.ParseAs[Config]()
}
