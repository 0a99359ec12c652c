// Package adapter contains the TCP server plumbing shared by protocol
// adapters: the accept loop, connection tracking, and graceful shutdown.
package adapter

import "context"

// Adapter is a protocol server managed by the p2pci process.
//
// Lifecycle:
//  1. Creation with protocol-specific configuration
//  2. Serve() binds the listener and blocks until shutdown
//  3. Stop() or context cancellation drains connections
//
// Implementations must allow Stop() to be called concurrently with Serve()
// and more than once.
type Adapter interface {
	// Serve starts the server and blocks until ctx is cancelled or the
	// listener fails. Returns nil on graceful shutdown.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown and waits for active connections
	// until ctx expires.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name used in logs and metrics.
	Protocol() string

	// Port returns the configured listening port.
	Port() int

	// MapError translates a domain error into a protocol status. Returns nil
	// when err has no protocol mapping.
	MapError(err error) ProtocolError
}
