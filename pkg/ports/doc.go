/*
Package ports defines the driven ports (interfaces) of a kvsession Session.

These interfaces decouple the session state machine from concrete store clients,
allowing the same lifecycle and retry logic to run over Redis or an in-memory fake.

# Key Interfaces

  - Transport: the network collaborator executing commands against the store.
*/
package ports
