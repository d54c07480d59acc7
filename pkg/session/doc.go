/*
Package session implements the kvsession Session: one caller-owned connection to a
key-value store, typed asynchronous operations, and the connect / reconnect / close
lifecycle.

# Lifecycle

	Disconnected --Connect--> Connecting --dial ok--> Ready
	Ready --transport drop--> Reconnecting --dial ok--> Ready
	Connecting | Reconnecting --retry policy gives up--> Closed
	any --Close--> Closed

Every transition is reported through domain.LifecycleHooks. A transport drop is any
transport-class error observed by a data operation or by the optional health check.

# Operations

Operations return immediately with a Future. Operations issued while the session is
not Ready resolve at once with domain.ErrNotConnected and never reach the transport.
Transport failures are handled by the retry policy and surface to the caller only as
ErrNotConnected; ErrInvalidValue and ErrStoreError are returned as-is and never change
the session state.

	sess := session.New(transport, session.DefaultConfig())
	if _, err := sess.Connect().Await(ctx); err != nil {
		return err
	}
	defer sess.Close()

	if _, err := sess.SetString(ctx, "framework", "Spring", 0).Await(ctx); err != nil {
		return err
	}
*/
package session
