// Package wake defines the wake detection capability interface.
package wake

import "context"

// Detector blocks until the wake signal fires.
type Detector interface {
	// AwaitWake blocks until the wake signal is detected or a shutdown is
	// requested. It returns true when the assistant should start a session
	// and false when the process loop should end. A non-nil error is
	// reported alongside false when the wait failed rather than completed.
	AwaitWake(ctx context.Context) (bool, error)
}
