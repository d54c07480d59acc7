package session

import (
	"fmt"
	"reflect"
	"time"

	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/retry"
	"github.com/mitchellh/mapstructure"
)

// Config holds the session tunables. It is usually decoded from a flat map of
// named options with ConfigFromMap.
type Config struct {
	// URL is the store endpoint, e.g. redis://localhost:6379/0.
	URL string `mapstructure:"redis_url" yaml:"redis_url"`

	RetryBackoff     time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	RetryMultiplier  float64       `mapstructure:"retry_multiplier" yaml:"retry_multiplier"`
	RetryMaxBackoff  time.Duration `mapstructure:"retry_max_backoff" yaml:"retry_max_backoff"`
	RetryMaxElapsed  time.Duration `mapstructure:"retry_max_elapsed" yaml:"retry_max_elapsed"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`

	// DialTimeout bounds each connection attempt. Zero means no bound.
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`

	// OperationTimeout bounds each data operation. Zero leaves it to the caller context.
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`

	// HealthInterval enables a periodic check of the connection while Ready.
	// Zero disables it, leaving drop detection to data operations.
	HealthInterval time.Duration `mapstructure:"health_interval" yaml:"health_interval"`
}

// DefaultConfig returns the defaults: a fixed 5s backoff, a 60s retry ceiling and 10 attempts.
func DefaultConfig() Config {
	return Config{
		URL:              "redis://localhost:6379/0",
		RetryBackoff:     retry.DefaultBackoff,
		RetryMultiplier:  1,
		RetryMaxElapsed:  retry.DefaultMaxElapsed,
		RetryMaxAttempts: retry.DefaultMaxAttempts,
		DialTimeout:      5 * time.Second,
	}
}

// ConfigFromMap decodes a flat map of named options over DefaultConfig.
// Unknown keys are ignored so the same map can carry application options.
// Durations accept Go duration strings ("5s") or plain numbers of milliseconds.
func ConfigFromMap(options map[string]any) (Config, error) {
	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			MillisecondsHookFunc(),
		),
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(options); err != nil {
		return cfg, fmt.Errorf("failed to decode session config: %w", err)
	}
	return cfg, cfg.Validate()
}

// MillisecondsHookFunc decodes numeric values into time.Duration as milliseconds.
func MillisecondsHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Millisecond, nil
		case int64:
			return time.Duration(v) * time.Millisecond, nil
		case uint64:
			return time.Duration(v) * time.Millisecond, nil
		case float64:
			return time.Duration(v * float64(time.Millisecond)), nil
		}
		return data, nil
	}
}

// Validate rejects negative tunables.
func (c Config) Validate() error {
	durations := map[string]time.Duration{
		"retry_backoff":     c.RetryBackoff,
		"retry_max_backoff": c.RetryMaxBackoff,
		"retry_max_elapsed": c.RetryMaxElapsed,
		"dial_timeout":      c.DialTimeout,
		"operation_timeout": c.OperationTimeout,
		"health_interval":   c.HealthInterval,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative: %w", name, domain.ErrInvalidValue)
		}
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("retry_max_attempts must not be negative: %w", domain.ErrInvalidValue)
	}
	return nil
}

// Policy returns the retry policy described by the config.
func (c Config) Policy() retry.Policy {
	return retry.Policy{
		Backoff:     c.RetryBackoff,
		Multiplier:  c.RetryMultiplier,
		MaxBackoff:  c.RetryMaxBackoff,
		MaxElapsed:  c.RetryMaxElapsed,
		MaxAttempts: c.RetryMaxAttempts,
	}
}
