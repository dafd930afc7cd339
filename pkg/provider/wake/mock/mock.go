// Package mock provides a wake.Detector implementation for testing.
package mock

import (
	"context"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/provider/wake"
)

var _ wake.Detector = (*Detector)(nil)

// Detector is a configurable mock wake.Detector.
type Detector struct {
	mu sync.Mutex

	// WakeResults are returned in order by successive AwaitWake calls.
	// Calls beyond the end return false, ending the assistant loop.
	WakeResults []bool
	// WakeError, when set, is returned by every call.
	WakeError error
	// BlockUntilCtx makes AwaitWake wait for context cancellation before
	// returning.
	BlockUntilCtx bool

	CallCountAwaitWake int
}

// AwaitWake implements wake.Detector.
func (d *Detector) AwaitWake(ctx context.Context) (bool, error) {
	d.mu.Lock()
	idx := d.CallCountAwaitWake
	d.CallCountAwaitWake++
	blocking := d.BlockUntilCtx
	d.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if d.WakeError != nil {
		return false, d.WakeError
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if idx < len(d.WakeResults) {
		return d.WakeResults[idx], nil
	}
	return false, nil
}

// CallCount returns how many times AwaitWake has been called.
func (d *Detector) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.CallCountAwaitWake
}
