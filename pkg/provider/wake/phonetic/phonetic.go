// Package phonetic provides a wake detector that listens for a specific
// phrase. It records short utterances, transcribes them, and checks the
// transcript for the wake phrase using Double Metaphone phonetic encoding
// combined with Jaro-Winkler string similarity, so close mishearings
// ("hey vortecks") still wake the assistant.
package phonetic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
	"github.com/vortexai/vortex-edge/pkg/provider/wake"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

var _ wake.Detector = (*Detector)(nil)

// Option is a functional option for Detector.
type Option func(*Detector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-overlapping window to count as the wake phrase. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(d *Detector) { d.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when the
// window has no phonetic overlap with the wake phrase. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(d *Detector) { d.fuzzyThreshold = threshold }
}

// WithLanguage sets the language hint passed to the transcriber.
func WithLanguage(language string) Option {
	return func(d *Detector) { d.language = language }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.log = logger }
}

// Detector implements wake.Detector by repeatedly capturing a short
// utterance, transcribing it, and matching the transcript against the wake
// phrase.
type Detector struct {
	phrase      string
	phraseCodes map[string]struct{}
	rec         recorder.Recorder
	transcriber stt.Provider
	language    string

	phoneticThreshold float64
	fuzzyThreshold    float64
	log               *slog.Logger
}

// New creates a phonetic wake detector for the given phrase. rec should be
// configured for short captures; transcriber turns each capture into text.
func New(phrase string, rec recorder.Recorder, transcriber stt.Provider, opts ...Option) (*Detector, error) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return nil, fmt.Errorf("phonetic: wake phrase must not be empty")
	}
	if rec == nil {
		return nil, fmt.Errorf("phonetic: recorder must not be nil")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("phonetic: transcriber must not be nil")
	}

	d := &Detector{
		phrase:            phrase,
		phraseCodes:       codesForTokens(strings.Fields(phrase)),
		rec:               rec,
		transcriber:       transcriber,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		log:               slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// AwaitWake implements wake.Detector.
func (d *Detector) AwaitWake(ctx context.Context) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		utt, err := d.rec.Record(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, err
			}
			return false, fmt.Errorf("phonetic: record: %w", err)
		}
		if utt.Empty() {
			continue
		}

		transcript, err := d.transcriber.Transcribe(ctx, utt, d.language)
		if err != nil {
			// Transient STT failures must not kill the idle loop.
			d.log.Warn("wake transcription failed", "error", err)
			continue
		}
		if transcript == "" {
			continue
		}

		if d.Matches(transcript) {
			d.log.Debug("wake phrase matched", "transcript", transcript)
			return true, nil
		}
	}
}

// Matches reports whether the transcript contains the wake phrase. Every
// window of consecutive transcript tokens with the phrase's token count is
// scored; a window with phonetic overlap passes at the phonetic threshold,
// one without only at the stricter fuzzy threshold.
func (d *Detector) Matches(transcript string) bool {
	tokens := strings.Fields(normalize(transcript))
	if len(tokens) == 0 {
		return false
	}

	width := len(strings.Fields(d.phrase))
	if width > len(tokens) {
		width = len(tokens)
	}

	for i := 0; i+width <= len(tokens); i++ {
		window := tokens[i : i+width]
		windowFull := strings.Join(window, " ")

		score := bestJWScore(window, strings.Fields(d.phrase), windowFull, d.phrase)
		if codesOverlap(codesForTokens(window), d.phraseCodes) {
			if score >= d.phoneticThreshold {
				return true
			}
		} else if score >= d.fuzzyThreshold {
			return true
		}
	}
	return false
}

// normalize lowercases the text and strips punctuation so transcriber
// formatting does not defeat the token windows.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the
// window and the phrase using three strategies: full strings, space-stripped
// strings, and the best pairwise token score.
func bestJWScore(windowTokens, phraseTokens []string, windowFull, phraseFull string) float64 {
	score := matchr.JaroWinkler(windowFull, phraseFull, false)

	if len(windowTokens) > 1 || len(phraseTokens) > 1 {
		concat1 := strings.Join(windowTokens, "")
		concat2 := strings.Join(phraseTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, wt := range windowTokens {
		for _, pt := range phraseTokens {
			if s := matchr.JaroWinkler(wt, pt, false); s > score {
				score = s
			}
		}
	}

	return score
}
