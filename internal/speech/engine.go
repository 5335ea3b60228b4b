package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

var ErrSynthesis = errors.New("speech: synthesis failed")

// qualityMarkers are the platform naming conventions for high-quality
// voices, preferred during selection.
var qualityMarkers = []string{"premium", "enhanced", "natural", "neural"}

// Session is one in-flight or completed utterance. At most one session
// per engine is speaking at any instant.
type Session struct {
	Text    string
	VoiceID string

	mu       sync.Mutex
	speaking bool
	err      error
	done     chan struct{}
	cancel   context.CancelFunc
}

func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Done closes when the session stops speaking for any reason: natural
// completion, cancellation, or synthesis error. Observers wait on it
// instead of polling.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	if !s.speaking {
		s.mu.Unlock()
		return
	}
	s.speaking = false
	if err != nil && !errors.Is(err, context.Canceled) {
		s.err = fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	s.mu.Unlock()
	close(s.done)
}

// Engine converts summary text to audio through a Synthesizer,
// guaranteeing no overlapping utterances and handling voice selection.
type Engine struct {
	synth Synthesizer

	// VoiceWaitTimeout bounds how long Speak waits for the voice
	// catalog to populate before proceeding without a preference.
	VoiceWaitTimeout time.Duration

	// OnStateChange, when set, observes every speaking transition.
	OnStateChange func(speaking bool)

	// startMu serializes the stop-select-install sequence in Speak so
	// two concurrent calls cannot both end up with a live session.
	startMu sync.Mutex

	mu      sync.Mutex
	current *Session
}

func NewEngine(synth Synthesizer) *Engine {
	return &Engine{
		synth:            synth,
		VoiceWaitTimeout: 2 * time.Second,
	}
}

// Speak cancels any active session, selects a voice, and starts
// speaking text. The returned session reports speaking state and
// completion; synthesis errors are absorbed into the session rather
// than failing the caller.
func (e *Engine) Speak(text string) (*Session, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty utterance", ErrSynthesis)
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()

	e.Stop()

	voice := e.selectVoice()

	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		Text:     text,
		VoiceID:  voice,
		speaking: true,
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	e.mu.Lock()
	e.current = session
	e.mu.Unlock()

	e.notify(true)
	log.Printf("[SPEECH] Speaking %d chars with voice %q", len(text), voice)

	go func() {
		err := e.synth.Speak(ctx, Utterance{
			Text:    text,
			VoiceID: voice,
			Rate:    DefaultRate,
			Pitch:   DefaultPitch,
			Volume:  DefaultVolume,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[SPEECH] Synthesis failed: %v", err)
		}
		session.finish(err)
		e.notify(false)
	}()

	return session, nil
}

// Stop cancels the active session, if any, and waits for it to end so
// that at most one session is ever speaking.
func (e *Engine) Stop() {
	e.mu.Lock()
	session := e.current
	e.current = nil
	e.mu.Unlock()

	if session == nil {
		return
	}
	session.cancel()
	<-session.done
}

func (e *Engine) Speaking() bool {
	e.mu.Lock()
	session := e.current
	e.mu.Unlock()
	return session != nil && session.Speaking()
}

// selectVoice prefers an English voice with a premium/enhanced naming
// marker, then any English voice, then any voice at all. It waits a
// bounded time for the catalog to populate.
func (e *Engine) selectVoice() string {
	voices := e.synth.Voices()
	deadline := time.Now().Add(e.VoiceWaitTimeout)
	for len(voices) == 0 && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
		voices = e.synth.Voices()
	}
	if len(voices) == 0 {
		log.Printf("[SPEECH] Voice catalog never populated, proceeding without a voice preference")
		return ""
	}

	var firstEnglish string
	for _, v := range voices {
		if !strings.HasPrefix(strings.ToLower(v.Lang), "en") {
			continue
		}
		if firstEnglish == "" {
			firstEnglish = v.ID
		}
		name := strings.ToLower(v.Name)
		for _, marker := range qualityMarkers {
			if strings.Contains(name, marker) {
				return v.ID
			}
		}
	}
	if firstEnglish != "" {
		return firstEnglish
	}
	return voices[0].ID
}

func (e *Engine) notify(speaking bool) {
	if e.OnStateChange != nil {
		e.OnStateChange(speaking)
	}
}
