/*
Package kvsession is a client session for a key-value store, Redis by default.

A Session owns one logical connection. It connects, reconnects after transport
failures under a configurable retry policy, and closes; every transition is reported
to caller-supplied hooks. Data operations (strings, hashes, lists, sets, counters,
expiry, deletion) return a typed Future and never block the caller.

# Usage

	cfg := session.DefaultConfig()
	cfg.URL = "redis://localhost:6379/0"

	sess, err := kvsession.Connect(ctx, cfg, session.WithHooks(observability.LogHooks(logger)))
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	if _, err := sess.SetString(ctx, "framework", "Spring", 0).Await(ctx); err != nil {
		log.Fatal(err)
	}
	got, err := sess.GetString(ctx, "framework").Await(ctx)

Operations issued while the session is not Ready fail at once with
domain.ErrNotConnected. Transport failures never reach the caller directly: they move
the session to Reconnecting, and the retry policy decides whether it returns to Ready
or gives up and closes.

# Packages

  - pkg/session: the Session, its Config and the Future type.
  - pkg/retry: the reconnection policy.
  - pkg/domain: states, events, hooks and the error taxonomy.
  - pkg/ports: the Transport interface and its contract tests.
  - pkg/adapters/redis, pkg/adapters/memory: transports.
  - pkg/adapters/http: health, metrics and event stream endpoints.
  - pkg/observability: logging and Prometheus hooks.
*/
package kvsession
