// Package recorder defines the utterance capture capability interface.
package recorder

import (
	"context"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

// Recorder captures one user utterance.
type Recorder interface {
	// Record blocks until one utterance has been captured. An empty
	// utterance with a nil error means nothing was heard before the
	// recorder gave up; callers treat that as a soft completion.
	Record(ctx context.Context) (audio.Utterance, error)
}
