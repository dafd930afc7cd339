// Package audio defines the types for local audio capture and playback.
//
// The two primary abstractions are:
//
//   - [Input] opens a pull-based [FrameStream] over the capture device.
//   - [Output] plays PCM and can be stopped mid-playback.
//
// Implementations are provided by device adapter packages (e.g.
// audio/portaudio). The interfaces are intentionally narrow to keep the
// pipeline decoupled from device details.
//
// This package lives under pkg/ because external device adapters are
// expected to implement [Input] and [Output].
package audio

import "time"

// Frame represents a single frame of audio data flowing through the pipeline.
// Frames are captured from the input stream, measured by wake and
// interruption detectors, and accumulated by recorders.
type Frame struct {
	// PCM audio data, little-endian int16 samples.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT capture).
	SampleRate int

	// Channels: 1 for mono capture, 2 for stereo playback.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Utterance is a complete captured segment of speech, ready for transcription.
type Utterance struct {
	// PCM audio data, little-endian int16 samples. May be empty for
	// console-style recorders that capture typed text instead of audio.
	PCM []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels in the PCM data.
	Channels int

	// Hint carries a transcript known at capture time (console recorders).
	// When set, speech-to-text providers that honor hints may skip decoding.
	Hint string
}

// Empty reports whether the utterance carries neither audio nor a hint.
func (u Utterance) Empty() bool {
	return len(u.PCM) == 0 && u.Hint == ""
}

// Duration returns the play time of the captured audio.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 || u.Channels <= 0 {
		return 0
	}
	samples := len(u.PCM) / 2 / u.Channels
	return time.Duration(samples) * time.Second / time.Duration(u.SampleRate)
}
