// Package console provides a wake detector driven by terminal input, used to
// run the assistant loop without any audio hardware.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	terminal "github.com/vortexai/vortex-edge/internal/console"
	"github.com/vortexai/vortex-edge/pkg/provider/wake"
)

var _ wake.Detector = (*Detector)(nil)

// Detector implements wake.Detector over line-based input. An empty line or
// a line containing the wake word triggers a wake; "exit", "quit", or EOF
// requests shutdown.
type Detector struct {
	word  string
	out   io.Writer
	input *terminal.Source
}

// New creates a Detector reading from the shared stdin source and prompting
// on stdout.
func New(wakeWord string) *Detector {
	return NewSource(wakeWord, terminal.Stdin(), os.Stdout)
}

// NewSource creates a Detector over an explicit line source. Used by tests.
func NewSource(wakeWord string, input *terminal.Source, out io.Writer) *Detector {
	return &Detector{
		word:  strings.ToLower(strings.TrimSpace(wakeWord)),
		out:   out,
		input: input,
	}
}

// AwaitWake implements wake.Detector.
func (d *Detector) AwaitWake(ctx context.Context) (bool, error) {
	fmt.Fprintf(d.out, "💤 Waiting for wake word %q (press Enter to wake, type exit to quit)\n", d.word)
	for {
		line, ok, err := d.input.ReadLine(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		trimmed := strings.ToLower(strings.TrimSpace(line))
		switch {
		case trimmed == "exit" || trimmed == "quit":
			return false, nil
		case trimmed == "" || strings.Contains(trimmed, d.word):
			return true, nil
		}
	}
}
