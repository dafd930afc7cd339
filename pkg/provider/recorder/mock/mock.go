// Package mock provides a recorder.Recorder implementation for testing.
package mock

import (
	"context"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
)

var _ recorder.Recorder = (*Recorder)(nil)

// Recorder is a configurable mock recorder.Recorder.
type Recorder struct {
	mu sync.Mutex

	// RecordResults are returned in order by successive Record calls.
	// Calls beyond the end return an empty utterance.
	RecordResults []audio.Utterance
	// RecordResult is returned by every call when RecordResults is empty.
	RecordResult audio.Utterance
	// RecordError, when set, is returned by every call.
	RecordError error
	// BlockUntilCtx makes Record wait for context cancellation.
	BlockUntilCtx bool

	CallCountRecord int
}

// Record implements recorder.Recorder.
func (r *Recorder) Record(ctx context.Context) (audio.Utterance, error) {
	r.mu.Lock()
	idx := r.CallCountRecord
	r.CallCountRecord++
	blocking := r.BlockUntilCtx
	r.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return audio.Utterance{}, ctx.Err()
	}
	if r.RecordError != nil {
		return audio.Utterance{}, r.RecordError
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.RecordResults) > 0 {
		if idx < len(r.RecordResults) {
			return r.RecordResults[idx], nil
		}
		return audio.Utterance{}, nil
	}
	return r.RecordResult, nil
}

// CallCount returns how many times Record has been called.
func (r *Recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.CallCountRecord
}
