package auraclient

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the client configuration read from AURA_CLIENT_* environment
// variables. Zero values fall back to the documented defaults.
type EnvConfig struct {
	MaxRetries       int           `env:"AURA_CLIENT_MAX_RETRIES" envDefault:"3"`
	InitialBackoff   time.Duration `env:"AURA_CLIENT_INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff       time.Duration `env:"AURA_CLIENT_MAX_BACKOFF" envDefault:"8s"`
	Timeout          time.Duration `env:"AURA_CLIENT_TIMEOUT" envDefault:"30s"`
	FailureThreshold int           `env:"AURA_CLIENT_CB_FAILURE_THRESHOLD" envDefault:"10"`
	SuccessThreshold int           `env:"AURA_CLIENT_CB_SUCCESS_THRESHOLD" envDefault:"2"`
	OpenDuration     time.Duration `env:"AURA_CLIENT_CB_OPEN_DURATION" envDefault:"60s"`
	QueueInterval    time.Duration `env:"AURA_CLIENT_QUEUE_INTERVAL" envDefault:"0"`
	CacheTTL         time.Duration `env:"AURA_CLIENT_CACHE_TTL" envDefault:"0"`

	// StatePath, when set, is the directory for the durable circuit store.
	// The caller opens it with NewBadgerStateStore and passes it via
	// WithCircuitStateStore; opening a database is not an Options() side
	// effect.
	StatePath string `env:"AURA_CLIENT_STATE_PATH"`

	Debug bool `env:"AURA_CLIENT_DEBUG" envDefault:"false"`
}

// ConfigFromEnv parses the environment into an EnvConfig.
func ConfigFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Options translates the parsed configuration into client options.
func (cfg EnvConfig) Options() []Option {
	opts := []Option{
		WithMaxRetries(cfg.MaxRetries),
		WithInitialBackoff(cfg.InitialBackoff),
		WithMaxBackoff(cfg.MaxBackoff),
		WithTimeout(cfg.Timeout),
		WithCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			SuccessThreshold: cfg.SuccessThreshold,
			OpenDuration:     cfg.OpenDuration,
		}),
	}
	if cfg.QueueInterval > 0 {
		opts = append(opts, WithRequestQueue(cfg.QueueInterval))
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, WithCache(cfg.CacheTTL))
	}
	if cfg.Debug {
		opts = append(opts, WithSimpleLogger())
	}
	return opts
}
