// Package mock provides an in-memory mock implementation of [stt.Provider]
// for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
)

// TranscribeCall records the arguments of one [Provider.Transcribe] invocation.
type TranscribeCall struct {
	// Utterance is the utterance passed to Transcribe.
	Utterance audio.Utterance
	// Language is the language hint passed to Transcribe.
	Language string
}

// Provider is a mock implementation of [stt.Provider].
// Set the exported Result fields before use; inspect the recorded calls after.
type Provider struct {
	mu sync.Mutex

	// TranscribeResults are returned in order by successive Transcribe calls.
	// After the slice is exhausted, TranscribeResult is returned.
	TranscribeResults []string

	// TranscribeResult is returned once TranscribeResults is exhausted.
	TranscribeResult string

	// TranscribeError is the error returned by every Transcribe call.
	TranscribeError error

	// TranscribeCalls records all Transcribe invocations.
	TranscribeCalls []TranscribeCall
}

// Transcribe implements [stt.Provider].
func (p *Provider) Transcribe(_ context.Context, utt audio.Utterance, language string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := len(p.TranscribeCalls)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Utterance: utt, Language: language})
	if p.TranscribeError != nil {
		return "", p.TranscribeError
	}
	if idx < len(p.TranscribeResults) {
		return p.TranscribeResults[idx], nil
	}
	return p.TranscribeResult, nil
}

var _ stt.Provider = (*Provider)(nil)
