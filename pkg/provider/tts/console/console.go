// Package console provides a TTS speaker that prints instead of playing
// audio. It completes the hardware-free harness together with the console
// wake detector and recorder.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/provider/tts"
)

// Speaker implements tts.Speaker by writing each sentence to a writer.
type Speaker struct {
	mu sync.Mutex
	w  io.Writer
}

var _ tts.Speaker = (*Speaker)(nil)

// New returns a Speaker printing to stdout.
func New() *Speaker { return &Speaker{w: os.Stdout} }

// NewWriter returns a Speaker printing to w. Used in tests.
func NewWriter(w io.Writer) *Speaker { return &Speaker{w: w} }

// Speak prints the text.
func (s *Speaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "🔊 %s\n", text)
	return err
}

// Stop is a no-op; printed text cannot be unprinted.
func (*Speaker) Stop() {}
