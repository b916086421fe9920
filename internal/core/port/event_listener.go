package port

import "context"

// EventListenerPort is implemented by inbound adapters that consume external
// events (queue messages) and hand them to the core.
type EventListenerPort interface {
	// Start blocks until ctx is cancelled or the listener fails.
	Start(ctx context.Context) error

	// Close stops the listener and waits for in-flight handlers.
	Close() error
}
