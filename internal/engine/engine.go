package engine

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lazypower/reserve/internal/cache"
	"github.com/lazypower/reserve/internal/config"
	"github.com/lazypower/reserve/internal/metrics"
	"github.com/lazypower/reserve/internal/store"
)

// Config is the subset of settings the engine acts on.
type Config struct {
	CooldownDays    int
	SessionTarget   int
	MaxRounds       int
	CooldownTick    time.Duration
	InviteTTL       time.Duration
	SummaryWeeks    int
	SummaryCacheTTL time.Duration
	DigestTick      time.Duration
}

// ConfigFrom extracts engine settings from the service config.
func ConfigFrom(c config.Config) Config {
	return Config{
		CooldownDays:    c.Surfacing.CooldownDays,
		SessionTarget:   c.Surfacing.SessionTarget,
		MaxRounds:       c.Surfacing.MaxRounds,
		CooldownTick:    c.Surfacing.CooldownTick,
		InviteTTL:       c.Circle.InviteTTL,
		SummaryWeeks:    c.Circle.SummaryWeeks,
		SummaryCacheTTL: c.Circle.SummaryCacheTTL,
		DigestTick:      c.Circle.DigestTick,
	}
}

// Engine orchestrates surfacing, rainy-day sessions, circle sharing and the
// background cooldown and digest timers.
type Engine struct {
	DB      *store.DB
	Cache   cache.Store
	Metrics *metrics.Metrics

	cfg    Config
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCache sets the summary cache. Defaults to an in-process cache.
func WithCache(c cache.Store) Option {
	return func(e *Engine) { e.Cache = c }
}

// WithMetrics sets the metrics sink. Defaults to unregistered collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.Metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRand sets the random source used to pick among eligible deposits.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// New creates a new Engine.
func New(db *store.DB, cfg Config, opts ...Option) *Engine {
	def := ConfigFrom(config.Default())
	if cfg.CooldownDays <= 0 {
		cfg.CooldownDays = def.CooldownDays
	}
	if cfg.SessionTarget <= 0 {
		cfg.SessionTarget = def.SessionTarget
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = def.MaxRounds
	}
	if cfg.CooldownTick <= 0 {
		cfg.CooldownTick = def.CooldownTick
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = def.InviteTTL
	}
	if cfg.SummaryWeeks <= 0 {
		cfg.SummaryWeeks = def.SummaryWeeks
	}
	if cfg.DigestTick <= 0 {
		cfg.DigestTick = def.DigestTick
	}

	e := &Engine{
		DB:     db,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Cache == nil {
		e.Cache = cache.NewMemory()
	}
	if e.Metrics == nil {
		e.Metrics = metrics.NewUnregistered()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.rng == nil {
		seed := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(seed, seed>>32))
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// Config returns the effective engine settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// pick returns a uniform index in [0, n).
func (e *Engine) pick(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.IntN(n)
}

func (e *Engine) now() time.Time {
	return e.DB.Now()
}

// every runs fn once now and then on each tick until Stop.
func (e *Engine) every(name string, interval time.Duration, fn func() (int, error)) {
	run := func() {
		updated, err := fn()
		if err != nil {
			e.logger.Error("timer failed", "timer", name, "error", err)
			e.Metrics.TimerRuns.WithLabelValues(name, "error").Inc()
			e.Metrics.Errors.WithLabelValues(name).Inc()
			return
		}
		e.Metrics.TimerRuns.WithLabelValues(name, "ok").Inc()
		if updated > 0 {
			e.Metrics.TimerUpdates.WithLabelValues(name).Add(float64(updated))
			e.logger.Info("timer run", "timer", name, "updated", updated)
		}
	}

	// Run once at startup
	run()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				run()
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines and waits for them.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}
