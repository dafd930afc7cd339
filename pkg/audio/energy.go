package audio

// MeanAbsAmplitude returns the mean absolute amplitude of little-endian
// int16 PCM, normalized to [0, 1]. An empty or misaligned trailing byte
// yields 0 for the missing samples; an empty input returns 0.
//
// This is the energy measure used by wake, endpointing, and interruption
// detection. It is deliberately cheap: one pass, no FFT.
func MeanAbsAmplitude(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum uint64
	for i := 0; i < samples*2; i += 2 {
		s := int32(int16(pcm[i]) | int16(pcm[i+1])<<8)
		if s < 0 {
			s = -s
		}
		sum += uint64(s)
	}
	return float64(sum) / float64(samples) / 32768.0
}

// PeakAmplitude returns the largest absolute sample value of little-endian
// int16 PCM, normalized to [0, 1].
func PeakAmplitude(pcm []byte) float64 {
	samples := len(pcm) / 2
	var peak int32
	for i := 0; i < samples*2; i += 2 {
		s := int32(int16(pcm[i]) | int16(pcm[i+1])<<8)
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return float64(peak) / 32768.0
}
