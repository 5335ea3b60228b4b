package speech

import "context"

// Delivery tuning fixed for intelligibility.
const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.05
	DefaultVolume = 1.0
)

type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type Utterance struct {
	Text    string
	VoiceID string
	Rate    float64
	Pitch   float64
	Volume  float64
}

// Synthesizer is one speech backend. Voices may return an empty list
// while the backend is still loading its catalog; callers are expected
// to retry within a bounded window. Speak blocks until the utterance
// finishes, the context is cancelled, or synthesis fails.
type Synthesizer interface {
	Voices() []Voice
	Speak(ctx context.Context, u Utterance) error
}
