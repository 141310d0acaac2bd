package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"fundledger/internal/domain"
)

// Journal drivers.
const (
	JournalMemory   = "memory"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string   `env:"APP_ENV" envDefault:"development"`
	Port               string   `env:"PORT" envDefault:"8080"`
	LogLevel           string   `env:"LOG_LEVEL"`
	JWTSecret          string   `env:"JWT_SECRET"`
	TokenTTLMinutes    int      `env:"TOKEN_TTL_MINUTES" envDefault:"1440"`
	JournalDriver      string   `env:"JOURNAL_DRIVER" envDefault:"memory"`
	DatabaseURL        string   `env:"DATABASE_URL"`
	DBMaxConns         int32    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBConnectSecs      int      `env:"DB_CONNECT_TIMEOUT_SECONDS" envDefault:"10"`
	SQLitePath         string   `env:"SQLITE_PATH" envDefault:"fundledger.db"`
	ReadTimeoutSecs    int      `env:"HTTP_READ_TIMEOUT_SECONDS" envDefault:"15"`
	WriteTimeoutSecs   int      `env:"HTTP_WRITE_TIMEOUT_SECONDS" envDefault:"30"`
	IdleTimeoutSecs    int      `env:"HTTP_IDLE_TIMEOUT_SECONDS" envDefault:"60"`
	HeaderTimeoutSecs  int      `env:"HTTP_READ_HEADER_TIMEOUT_SECONDS" envDefault:"5"`
	ShutdownSecs       int      `env:"HTTP_SHUTDOWN_TIMEOUT_SECONDS" envDefault:"20"`
	RateLimitPerMin    int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PayoutURL          string   `env:"PAYOUT_URL"`
	PayoutToken        string   `env:"PAYOUT_TOKEN"`
	PayoutTimeoutSecs  int      `env:"PAYOUT_TIMEOUT_SECONDS" envDefault:"15"`
	CustodyAddress     string   `env:"CUSTODY_ADDRESS"`
	FaucetEnabled      bool     `env:"FAUCET_ENABLED" envDefault:"false"`

	HTTPReadTimeout   time.Duration  `env:"-"`
	HTTPWriteTimeout  time.Duration  `env:"-"`
	HTTPIdleTimeout   time.Duration  `env:"-"`
	HTTPHeaderTimeout time.Duration  `env:"-"`
	ShutdownTimeout   time.Duration  `env:"-"`
	DBConnectTimeout  time.Duration  `env:"-"`
	PayoutTimeout     time.Duration  `env:"-"`
	TokenTTL          time.Duration  `env:"-"`
	Custody           domain.Address `env:"-"`
}

// LoadConfig loads configuration from the process environment.
func LoadConfig() (*Config, error) {
	return ParseConfig(env.ToMap(os.Environ()))
}

// ParseConfig loads configuration from environ and applies defaults where needed.
func ParseConfig(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.JournalDriver = strings.ToLower(strings.TrimSpace(cfg.JournalDriver))
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.JournalDriver {
	case JournalMemory, JournalSQLite:
	case JournalPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for JOURNAL_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("JOURNAL_DRIVER %q is not one of memory, sqlite, postgres", cfg.JournalDriver)
	}
	if cfg.RateLimitPerMin <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if cfg.TokenTTLMinutes <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL_MINUTES must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}
	if cfg.CustodyAddress != "" {
		addr, err := domain.RequireAddress(cfg.CustodyAddress)
		if err != nil {
			return nil, fmt.Errorf("CUSTODY_ADDRESS: %w", err)
		}
		cfg.Custody = addr
	}
	if cfg.PayoutURL != "" && cfg.FaucetEnabled {
		return nil, fmt.Errorf("FAUCET_ENABLED requires the in-process bank; unset PAYOUT_URL")
	}

	origins := cfg.CORSAllowedOrigins[:0]
	for _, o := range cfg.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.CORSAllowedOrigins = origins

	cfg.HTTPReadTimeout = seconds(cfg.ReadTimeoutSecs, 15)
	cfg.HTTPWriteTimeout = seconds(cfg.WriteTimeoutSecs, 30)
	cfg.HTTPIdleTimeout = seconds(cfg.IdleTimeoutSecs, 60)
	cfg.HTTPHeaderTimeout = seconds(cfg.HeaderTimeoutSecs, 5)
	cfg.ShutdownTimeout = seconds(cfg.ShutdownSecs, 20)
	cfg.DBConnectTimeout = seconds(cfg.DBConnectSecs, 10)
	cfg.PayoutTimeout = seconds(cfg.PayoutTimeoutSecs, 15)
	cfg.TokenTTL = time.Duration(cfg.TokenTTLMinutes) * time.Minute
	return cfg, nil
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
