package config

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultJWTSecret = "supersecuresecret"

// AreaConfig holds runtime configuration for an area server.
type AreaConfig struct {
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	Addr            string        `env:"ARENA_ADDR" envDefault:":4100"`
	ServerID        string        `env:"ARENA_SERVER_ID"`
	AreaID          string        `env:"ARENA_AREA_ID" envDefault:"area-1"`
	MaxTeamSize     int           `env:"ARENA_TEAM_MAX_MEMBERS" envDefault:"3"`
	LogLevel        string        `env:"ARENA_LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	MigrationsDir   string        `env:"DB_MIGRATIONS_DIR" envDefault:"db/migrations"`
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"supersecuresecret"`
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"12h"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPass       string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	FrameRateLimit  int           `env:"ARENA_FRAME_RATE_LIMIT" envDefault:"120"`
	FrameRateWindow time.Duration `env:"ARENA_FRAME_RATE_WINDOW" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"ARENA_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	OTelEndpoint    string        `env:"ARENA_OTEL_ENDPOINT"`
}

// LoadAreaConfig constructs an AreaConfig from environment variables. An
// unset server id gets a random one so that relay channels never collide.
func LoadAreaConfig() (AreaConfig, error) {
	var cfg AreaConfig
	if err := ParseEnv(&cfg); err != nil {
		return AreaConfig{}, err
	}
	cfg.ServerID = strings.TrimSpace(cfg.ServerID)
	if cfg.ServerID == "" {
		cfg.ServerID = uuid.NewString()
	}
	if cfg.MaxTeamSize <= 0 {
		return AreaConfig{}, errors.New("config: ARENA_TEAM_MAX_MEMBERS must be positive")
	}
	if strings.TrimSpace(cfg.AreaID) == "" {
		return AreaConfig{}, errors.New("config: ARENA_AREA_ID is required")
	}
	if cfg.IsProduction() && cfg.JWTSecret == defaultJWTSecret {
		return AreaConfig{}, errors.New("config: JWT_SECRET must be set in production")
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c AreaConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
