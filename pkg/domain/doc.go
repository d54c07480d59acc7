/*
Package domain contains the core types shared by the kvsession packages.

It defines the session lifecycle, the error taxonomy every transport maps its
failures into, and the observer events emitted while a session runs. This package
is kept free of I/O and of any dependency on a concrete store client.

# Key Entities

  - State: the lifecycle of a session (Disconnected, Connecting, Ready, Reconnecting, Closed).
  - Ack: a success result carrying only the number of affected items.
  - ErrorKind: the category of a failure (NotConnected, InvalidValue, StoreError, ...).
  - LifecycleHooks: optional callbacks for state changes, retries and operations.
*/
package domain
