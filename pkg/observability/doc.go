/*
Package observability turns session lifecycle events into logs and metrics.

Every adapter returns a domain.LifecycleHooks value; use Combine to attach several
of them to one session:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(observability.LogHooks(logger), metrics.Hooks())
	sess := session.New(transport, cfg, session.WithHooks(hooks))
*/
package observability
