package pool

import (
	"log/slog"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/agentfleet/toolpool/state"
)

// Default lifecycle knobs. All of them are configuration with sane defaults,
// not contracts: override per deployment via options or ConfigFromEnv.
const (
	DefaultTTL             = 10 * time.Minute
	DefaultSweepInterval   = time.Minute
	DefaultTeardownTimeout = 10 * time.Second
	DefaultDisposeTimeout  = 30 * time.Second
)

// Config carries the pool's lifecycle settings. Defaults can be loaded from
// the environment via envdecode.
type Config struct {
	// TTL is the idle duration after which an unused session becomes
	// eligible for eviction. ENV: TOOLPOOL_SESSION_TTL
	TTL time.Duration `env:"TOOLPOOL_SESSION_TTL,default=10m"`

	// SweepInterval is the period of the idle-eviction sweep.
	// ENV: TOOLPOOL_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"TOOLPOOL_SWEEP_INTERVAL,default=1m"`

	// TeardownTimeout bounds a single session teardown so one stuck engine
	// cannot stall the sweep. ENV: TOOLPOOL_TEARDOWN_TIMEOUT
	TeardownTimeout time.Duration `env:"TOOLPOOL_TEARDOWN_TIMEOUT,default=10s"`

	// DisposeTimeout bounds DisposeAll when its caller supplies no deadline.
	// ENV: TOOLPOOL_DISPOSE_TIMEOUT
	DisposeTimeout time.Duration `env:"TOOLPOOL_DISPOSE_TIMEOUT,default=30s"`
}

// ConfigFromEnv builds a Config using envdecode to populate the fields.
// Defaults are provided via struct tags.
func ConfigFromEnv() Config {
	var cfg Config
	_ = envdecode.Decode(&cfg)
	return cfg
}

// Option customizes a Pool.
type Option func(*Pool)

// WithConfig applies every setting from cfg. Zero fields keep the defaults.
func WithConfig(cfg Config) Option {
	return func(p *Pool) {
		if cfg.TTL > 0 {
			p.ttl = cfg.TTL
		}
		if cfg.SweepInterval > 0 {
			p.sweepInterval = cfg.SweepInterval
		}
		if cfg.TeardownTimeout > 0 {
			p.teardownTimeout = cfg.TeardownTimeout
		}
		if cfg.DisposeTimeout > 0 {
			p.disposeTimeout = cfg.DisposeTimeout
		}
	}
}

// WithTTL overrides the idle TTL.
func WithTTL(ttl time.Duration) Option {
	return func(p *Pool) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithSweepInterval overrides the sweep period.
func WithSweepInterval(interval time.Duration) Option {
	return func(p *Pool) {
		if interval > 0 {
			p.sweepInterval = interval
		}
	}
}

// WithTeardownTimeout overrides the per-teardown timeout.
func WithTeardownTimeout(timeout time.Duration) Option {
	return func(p *Pool) {
		if timeout > 0 {
			p.teardownTimeout = timeout
		}
	}
}

// WithDisposeTimeout overrides the default DisposeAll timeout.
func WithDisposeTimeout(timeout time.Duration) Option {
	return func(p *Pool) {
		if timeout > 0 {
			p.disposeTimeout = timeout
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// WithStateStore attaches a tool-set memory. When present, the pool records
// the union of tools each tenant's sessions were built with and folds the
// remembered set into the next fresh construction for that tenant. Without a
// store, fresh sessions are scoped to exactly the requested tools.
func WithStateStore(s state.Store) Option {
	return func(p *Pool) {
		p.states = s
	}
}
