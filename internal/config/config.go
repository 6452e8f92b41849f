package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all reserve configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Surfacing SurfacingConfig
	Circle    CircleConfig
	Identity  IdentityConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Bind string
	Port int
}

type DatabaseConfig struct {
	Path string // empty: store.DefaultDBPath()
}

type CacheConfig struct {
	RedisAddr     string // empty: in-process cache
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
}

type SurfacingConfig struct {
	CooldownDays  int
	SessionTarget int
	MaxRounds     int
	CooldownTick  time.Duration
}

type CircleConfig struct {
	InviteTTL       time.Duration
	SummaryWeeks    int
	SummaryCacheTTL time.Duration
	DigestTick      time.Duration
}

type IdentityConfig struct {
	JWTSecret string // empty: trust the X-User-ID header
	JWTIssuer string
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

type MetricsConfig struct {
	Namespace string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Surfacing: SurfacingConfig{
			CooldownDays:  30,
			SessionTarget: 1,
			MaxRounds:     10,
			CooldownTick:  24 * time.Hour,
		},
		Circle: CircleConfig{
			InviteTTL:       7 * 24 * time.Hour,
			SummaryWeeks:    2,
			SummaryCacheTTL: time.Hour,
			DigestTick:      time.Hour,
		},
		Identity: IdentityConfig{
			JWTIssuer: "reserve",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "reserve",
		},
	}
}

// Load reads an optional .env file, then overlays RESERVE_* environment
// variables on the defaults.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv overlays variables found through lookup on the defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	e := envReader{lookup: lookup}

	e.stringVar("RESERVE_BIND", &cfg.Server.Bind)
	e.intVar("RESERVE_PORT", &cfg.Server.Port)
	e.stringVar("RESERVE_DB", &cfg.Database.Path)

	e.stringVar("RESERVE_REDIS_ADDR", &cfg.Cache.RedisAddr)
	e.stringVar("RESERVE_REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	e.intVar("RESERVE_REDIS_DB", &cfg.Cache.RedisDB)
	e.boolVar("RESERVE_REDIS_TLS", &cfg.Cache.RedisTLS)

	e.intVar("RESERVE_COOLDOWN_DAYS", &cfg.Surfacing.CooldownDays)
	e.intVar("RESERVE_SESSION_TARGET", &cfg.Surfacing.SessionTarget)
	e.intVar("RESERVE_MAX_ROUNDS", &cfg.Surfacing.MaxRounds)
	e.durationVar("RESERVE_COOLDOWN_TICK", &cfg.Surfacing.CooldownTick)

	e.durationVar("RESERVE_INVITE_TTL", &cfg.Circle.InviteTTL)
	e.intVar("RESERVE_SUMMARY_WEEKS", &cfg.Circle.SummaryWeeks)
	e.durationVar("RESERVE_SUMMARY_CACHE_TTL", &cfg.Circle.SummaryCacheTTL)
	e.durationVar("RESERVE_DIGEST_TICK", &cfg.Circle.DigestTick)

	e.stringVar("RESERVE_JWT_SECRET", &cfg.Identity.JWTSecret)
	e.stringVar("RESERVE_JWT_ISSUER", &cfg.Identity.JWTIssuer)

	e.stringVar("RESERVE_LOG_LEVEL", &cfg.Log.Level)
	e.stringVar("RESERVE_LOG_FORMAT", &cfg.Log.Format)
	e.stringVar("RESERVE_METRICS_NAMESPACE", &cfg.Metrics.Namespace)

	if e.err != nil {
		return cfg, e.err
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges the rest of the system relies on.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	case c.Surfacing.CooldownDays < 1 || c.Surfacing.CooldownDays > 365:
		return fmt.Errorf("config: cooldown days must be 1-365, got %d", c.Surfacing.CooldownDays)
	case c.Surfacing.SessionTarget < 1:
		return fmt.Errorf("config: session target must be positive, got %d", c.Surfacing.SessionTarget)
	case c.Surfacing.MaxRounds < c.Surfacing.SessionTarget:
		return fmt.Errorf("config: max rounds %d below session target %d", c.Surfacing.MaxRounds, c.Surfacing.SessionTarget)
	case c.Circle.SummaryWeeks < 1:
		return fmt.Errorf("config: summary weeks must be positive, got %d", c.Circle.SummaryWeeks)
	case c.Circle.InviteTTL <= 0:
		return fmt.Errorf("config: invite ttl must be positive")
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// envReader records the first parse error and ignores later variables.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = n
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = b
}

func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s: %w", key, err)
		return
	}
	*dst = d
}
