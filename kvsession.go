package kvsession

import (
	"context"
	"fmt"

	"github.com/aretw0/kvsession/pkg/adapters/redis"
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/session"
)

// Open builds a Disconnected session over a Redis transport for cfg.URL.
// Call Connect on the returned session before issuing operations.
func Open(cfg session.Config, opts ...session.Option) (*session.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var redisOpts []redis.Option
	if cfg.DialTimeout > 0 {
		redisOpts = append(redisOpts, redis.WithDialTimeout(cfg.DialTimeout))
	}
	if cfg.OperationTimeout > 0 {
		redisOpts = append(redisOpts, redis.WithIOTimeout(cfg.OperationTimeout))
	}
	transport, err := redis.New(cfg.URL, redisOpts...)
	if err != nil {
		return nil, err
	}
	return session.New(transport, cfg, opts...), nil
}

// OpenMap decodes a flat option map (see session.ConfigFromMap) and calls Open.
func OpenMap(options map[string]any, opts ...session.Option) (*session.Session, error) {
	cfg, err := session.ConfigFromMap(options)
	if err != nil {
		return nil, err
	}
	return Open(cfg, opts...)
}

// Connect opens a session and waits until it is Ready.
// If ctx ends first, or the retry policy gives up, the session is closed.
func Connect(ctx context.Context, cfg session.Config, opts ...session.Option) (*session.Session, error) {
	sess, err := Open(cfg, opts...)
	if err != nil {
		return nil, err
	}
	state, err := sess.Connect().Await(ctx)
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
	}
	if state != domain.StateReady {
		_ = sess.Close()
		return nil, fmt.Errorf("failed to connect to %s: session is %s", cfg.URL, state)
	}
	return sess, nil
}
