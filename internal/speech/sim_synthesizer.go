package speech

import (
	"context"
	"strings"
	"time"
)

// SimSynthesizer is a local stand-in backend: speaking time is
// proportional to word count over the requested rate. The voice
// catalog can be configured to appear only after a delay, matching
// backends that load voices asynchronously.
type SimSynthesizer struct {
	voices    []Voice
	readyAt   time.Time
	wordSpeed time.Duration
}

func NewSimSynthesizer(voices []Voice, loadDelay time.Duration) *SimSynthesizer {
	return &SimSynthesizer{
		voices:    voices,
		readyAt:   time.Now().Add(loadDelay),
		wordSpeed: 30 * time.Millisecond,
	}
}

// DefaultVoices is a plausible desktop voice catalog.
func DefaultVoices() []Voice {
	return []Voice{
		{ID: "com.apple.voice.enhanced.en-US.Samantha", Name: "Samantha (Enhanced)", Lang: "en-US"},
		{ID: "com.apple.voice.compact.en-GB.Daniel", Name: "Daniel", Lang: "en-GB"},
		{ID: "com.apple.voice.compact.fr-FR.Thomas", Name: "Thomas", Lang: "fr-FR"},
		{ID: "google.en-US", Name: "Google US English", Lang: "en-US"},
	}
}

func (s *SimSynthesizer) Voices() []Voice {
	if time.Now().Before(s.readyAt) {
		return nil
	}
	return s.voices
}

func (s *SimSynthesizer) Speak(ctx context.Context, u Utterance) error {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}

	words := len(strings.Fields(u.Text))
	d := time.Duration(float64(words) * float64(s.wordSpeed) / rate)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
