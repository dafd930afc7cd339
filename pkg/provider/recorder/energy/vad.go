package energy

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

// fluxOnsetRatio is how much the spectral flux must jump relative to the
// running value to count as a speech onset, and inversely how far it must
// fall to count as quiet again. fluxFloor keeps the running value away from
// zero so the very first onset out of silence still registers.
const (
	fluxOnsetRatio = 1.75
	fluxFloor      = 1e-4
)

// vad classifies one frame as voiced or quiet. speaking tells the detector
// whether an utterance is already in progress; the spectral-flux measure is
// asymmetric around the onset.
type vad interface {
	voiced(pcm []byte, speaking bool) bool
}

func (r *Recorder) newVAD() vad {
	if r.mode == VADSpectralFlux {
		return &fluxVAD{}
	}
	return &amplitudeVAD{threshold: r.threshold}
}

// amplitudeVAD is the fixed-threshold measure.
type amplitudeVAD struct {
	threshold float64
}

func (v *amplitudeVAD) voiced(pcm []byte, _ bool) bool {
	return audio.MeanAbsAmplitude(pcm) >= v.threshold
}

// fluxVAD tracks the spectral flux between successive frames. A jump above
// fluxOnsetRatio times the running flux marks speech; once speaking, a drop
// below 1/fluxOnsetRatio of the running flux marks quiet.
type fluxVAD struct {
	prevSpectrum []float64
	lastFlux     float64
}

func (v *fluxVAD) voiced(pcm []byte, speaking bool) bool {
	flux := v.flux(pcm)
	ref := v.lastFlux
	if ref < fluxFloor {
		ref = fluxFloor
	}

	if speaking {
		if flux*fluxOnsetRatio <= ref {
			return false
		}
		v.lastFlux = flux
		return true
	}

	voiced := flux >= ref*fluxOnsetRatio
	v.lastFlux = flux
	return voiced
}

// flux computes the spectral flux of the frame against the previous one:
// the RMS of the positive changes in the magnitude spectrum.
func (v *fluxVAD) flux(pcm []byte) float64 {
	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		s := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		samples[i] = float64(s) / 32768.0
	}

	spectrum := fft.FFTReal(samples)
	half := len(spectrum) / 2
	magnitudes := make([]float64, half)
	for i := 0; i < half; i++ {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}

	if v.prevSpectrum == nil || len(v.prevSpectrum) != half {
		v.prevSpectrum = magnitudes
		return 0
	}

	var sum float64
	for i := 0; i < half; i++ {
		diff := magnitudes[i] - v.prevSpectrum[i]
		if diff > 0 {
			sum += diff * diff
		}
	}
	v.prevSpectrum = magnitudes
	if half == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(half))
}
