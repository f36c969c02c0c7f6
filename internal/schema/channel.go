package schema

import "context"

// Integration is an external endpoint (chat platform, console, scheduler)
// attached to the agent through one router channel.
type Integration interface {
	// Name returns the unique integration identifier (e.g. "discord").
	Name() string
	// Start opens the integration's channel and runs until ctx is cancelled.
	Start(ctx context.Context) error
}
