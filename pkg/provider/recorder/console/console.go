// Package console provides a recorder that takes typed text instead of
// microphone audio. The text travels as the utterance's transcript hint, so
// the echo transcriber returns it verbatim downstream.
package console

import (
	"context"
	"fmt"
	"io"
	"os"

	terminal "github.com/vortexai/vortex-edge/internal/console"
	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
)

var _ recorder.Recorder = (*Recorder)(nil)

// Recorder implements recorder.Recorder over line-based input.
type Recorder struct {
	out   io.Writer
	input *terminal.Source
}

// New creates a Recorder reading from the shared stdin source and prompting
// on stdout.
func New() *Recorder {
	return NewSource(terminal.Stdin(), os.Stdout)
}

// NewSource creates a Recorder over an explicit line source. Used by tests.
func NewSource(input *terminal.Source, out io.Writer) *Recorder {
	return &Recorder{out: out, input: input}
}

// Record implements recorder.Recorder. An empty line or EOF yields an empty
// utterance, which ends the turn without a backend call.
func (r *Recorder) Record(ctx context.Context) (audio.Utterance, error) {
	fmt.Fprint(r.out, "🎤 ")
	line, ok, err := r.input.ReadLine(ctx)
	if err != nil {
		return audio.Utterance{}, err
	}
	if !ok {
		return audio.Utterance{}, nil
	}
	return audio.Utterance{Hint: line}, nil
}
