// Package echo provides an STT provider for hardware-free operation: it
// returns the transcript hint the recorder attached at capture time. Pair it
// with the console recorder to drive the whole loop from typed text.
package echo

import (
	"context"
	"strings"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
)

// Provider implements stt.Provider by echoing the capture-time hint.
type Provider struct{}

var _ stt.Provider = (*Provider)(nil)

// New returns the echo provider.
func New() *Provider { return &Provider{} }

// Transcribe returns the utterance's hint, trimmed. Audio data is ignored.
func (*Provider) Transcribe(_ context.Context, utt audio.Utterance, _ string) (string, error) {
	return strings.TrimSpace(utt.Hint), nil
}
