package audio

import (
	"bytes"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV wraps little-endian int16 PCM in a 16-bit WAV container.
// Used to prepare captured utterances for HTTP speech-to-text upload.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}

	ints := make([]int, len(pcm)/2)
	for i := range ints {
		ints[i] = int(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
	}

	var ws writeSeekBuffer
	enc := wav.NewEncoder(&ws, sampleRate, 16, channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize wav: %w", err)
	}
	return ws.data, nil
}

// DecodeWAV extracts little-endian int16 PCM from a 16-bit WAV container.
// Returns the samples, sample rate, and channel count.
func DecodeWAV(data []byte) ([]byte, int, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("audio: decode wav: %w", err)
	}
	if dec.BitDepth != 16 {
		return nil, 0, 0, fmt.Errorf("audio: unsupported wav bit depth %d", dec.BitDepth)
	}
	pcm := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}
	return pcm, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker. The wav encoder seeks back
// to patch chunk sizes on Close, which bytes.Buffer cannot support.
type writeSeekBuffer struct {
	data []byte
	pos  int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		if need > cap(b.data) {
			grown := make([]byte, need, need*2)
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:need]
		}
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("audio: invalid seek whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("audio: negative seek position %d", abs)
	}
	b.pos = int(abs)
	return abs, nil
}

var _ io.WriteSeeker = (*writeSeekBuffer)(nil)
