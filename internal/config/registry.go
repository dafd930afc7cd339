package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/chat"
	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
	"github.com/vortexai/vortex-edge/pkg/provider/tts"
	"github.com/vortexai/vortex-edge/pkg/provider/wake"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	wake     map[string]func(ProviderEntry) (wake.Detector, error)
	recorder map[string]func(ProviderEntry) (recorder.Recorder, error)
	stt      map[string]func(ProviderEntry) (stt.Provider, error)
	tts      map[string]func(ProviderEntry) (tts.Speaker, error)
	chat     map[string]func(ProviderEntry) (chat.Client, error)
	audio    map[string]func(ProviderEntry) (audio.Device, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		wake:     make(map[string]func(ProviderEntry) (wake.Detector, error)),
		recorder: make(map[string]func(ProviderEntry) (recorder.Recorder, error)),
		stt:      make(map[string]func(ProviderEntry) (stt.Provider, error)),
		tts:      make(map[string]func(ProviderEntry) (tts.Speaker, error)),
		chat:     make(map[string]func(ProviderEntry) (chat.Client, error)),
		audio:    make(map[string]func(ProviderEntry) (audio.Device, error)),
	}
}

// RegisterWake registers a wake detector factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterWake(name string, factory func(ProviderEntry) (wake.Detector, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wake[name] = factory
}

// RegisterRecorder registers an utterance recorder factory under name.
func (r *Registry) RegisterRecorder(name string, factory func(ProviderEntry) (recorder.Recorder, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder[name] = factory
}

// RegisterSTT registers a speech-to-text provider factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a speaker factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Speaker, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterChat registers a conversation backend factory under name.
func (r *Registry) RegisterChat(name string, factory func(ProviderEntry) (chat.Client, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat[name] = factory
}

// RegisterAudio registers an audio device factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (audio.Device, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// CreateWake instantiates a wake detector using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateWake(entry ProviderEntry) (wake.Detector, error) {
	r.mu.RLock()
	factory, ok := r.wake[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: wake/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateRecorder instantiates a recorder using the factory registered under entry.Name.
func (r *Registry) CreateRecorder(entry ProviderEntry) (recorder.Recorder, error) {
	r.mu.RLock()
	factory, ok := r.recorder[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: recorder/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSTT instantiates an STT provider using the factory registered under entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a speaker using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Speaker, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateChat instantiates a conversation backend using the factory registered
// under entry.Name. Whether the returned client also streams is the caller's
// single wiring-time type assertion.
func (r *Registry) CreateChat(entry ProviderEntry) (chat.Client, error) {
	r.mu.RLock()
	factory, ok := r.chat[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chat/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAudio instantiates an audio device using the factory registered under entry.Name.
func (r *Registry) CreateAudio(entry ProviderEntry) (audio.Device, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
