package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/visioncue/visioncue/internal/detect"
	"github.com/visioncue/visioncue/internal/media"
	"github.com/visioncue/visioncue/internal/speech"
)

// Controller is the top-level state machine sequencing acquisition,
// detection, and feedback. It exclusively owns the pipeline state, the
// active asset, and the current result; the renderer and speech engine
// only read from it.
type Controller struct {
	media  *media.Manager
	sim    *detect.Simulator
	speech *speech.Engine

	mu        sync.Mutex
	state     State
	progress  int
	stage     string
	result    *detect.Result
	errReason string
	runID     string
	runCancel context.CancelFunc
	subs      map[chan Event]struct{}
}

func NewController(m *media.Manager, sim *detect.Simulator, eng *speech.Engine) *Controller {
	c := &Controller{
		media:  m,
		sim:    sim,
		speech: eng,
		state:  StateIdle,
		subs:   make(map[chan Event]struct{}),
	}
	eng.OnStateChange = func(speaking bool) {
		c.emit(Event{Type: EventSpeech, Data: map[string]bool{"speaking": speaking}})
	}
	return c
}

// SelectFile adopts an uploaded file as the active asset. An in-flight
// detection run and any speech are cancelled first; a superseded run's
// result never lands.
func (c *Controller) SelectFile(name, contentType string, size int64, r io.Reader) (*media.Asset, error) {
	c.mu.Lock()
	if c.state == StateRecording {
		c.mu.Unlock()
		return nil, media.ErrAlreadyRecording
	}
	cancel := c.clearRunLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.speech.Stop()

	asset, err := c.media.SelectFile(name, contentType, size, r)
	if err != nil {
		// acquisition failures are user-visible and recoverable only by
		// a fresh selection or capture
		c.fail(err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.state = StateAssetReady
	c.progress = 0
	c.stage = ""
	c.result = nil
	c.errReason = ""
	c.mu.Unlock()

	c.emitState()
	return asset, nil
}

// StartCapture begins live camera acquisition. The capture runs on its
// own context, detached from the triggering request.
func (c *Controller) StartCapture() error {
	c.mu.Lock()
	if c.state == StateRecording {
		c.mu.Unlock()
		return media.ErrAlreadyRecording
	}
	cancel := c.clearRunLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.speech.Stop()

	if err := c.media.StartLiveCapture(context.Background()); err != nil {
		if errors.Is(err, media.ErrAlreadyRecording) {
			return err
		}
		c.fail(err.Error())
		return err
	}

	c.mu.Lock()
	c.state = StateRecording
	c.result = nil
	c.errReason = ""
	c.mu.Unlock()

	c.emitState()
	return nil
}

// StopCapture finalizes the recording into the active asset. With no
// capture running it is a no-op.
func (c *Controller) StopCapture() (*media.Asset, error) {
	c.mu.Lock()
	wasRecording := c.state == StateRecording
	c.mu.Unlock()

	asset, err := c.media.StopLiveCapture()
	if err != nil {
		c.fail(err.Error())
		return nil, err
	}
	if !wasRecording {
		return asset, nil
	}

	c.mu.Lock()
	if asset != nil {
		c.state = StateAssetReady
	} else {
		c.state = StateIdle
	}
	c.mu.Unlock()

	c.emitState()
	return asset, nil
}

// Submit starts a detection run over the active asset. Submitting with
// no asset is rejected before any state transition. A submit while a
// run is in flight supersedes it.
func (c *Controller) Submit() error {
	c.mu.Lock()
	if c.state == StateRecording {
		c.mu.Unlock()
		return media.ErrAlreadyRecording
	}
	if c.state == StateError {
		c.mu.Unlock()
		return ErrRecoveryRequired
	}
	asset := c.media.Active()
	if asset == nil {
		c.mu.Unlock()
		c.emit(Event{Type: EventNotice, Data: map[string]string{"reason": "select or record a video first"}})
		return ErrNoAsset
	}

	cancel := c.clearRunLocked()

	runCtx, runCancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	c.runID = id
	c.runCancel = runCancel
	c.state = StateProcessing
	c.progress = 0
	c.stage = ""
	c.result = nil
	c.errReason = ""
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.speech.Stop()
	c.emitState()

	log.Printf("[PIPE] Processing %q (run %s)", asset.DisplayName, id)
	go c.runDetection(runCtx, id, asset)
	return nil
}

func (c *Controller) runDetection(ctx context.Context, id string, asset *media.Asset) {
	result, err := c.sim.Run(ctx, asset.ID, func(stage string, pct int) {
		c.mu.Lock()
		if c.runID != id {
			c.mu.Unlock()
			return
		}
		c.progress = pct
		c.stage = stage
		c.mu.Unlock()

		c.emit(Event{Type: EventProgress, Data: map[string]any{"stage": stage, "progress": pct}})
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("[PIPE] Run %s superseded", id)
			return
		}
		c.mu.Lock()
		if c.runID != id {
			c.mu.Unlock()
			return
		}
		cancel := c.clearRunLocked()
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.fail(err.Error())
		return
	}

	c.mu.Lock()
	if c.runID != id || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	cancel := c.clearRunLocked()
	c.state = StateResultReady
	c.progress = 100
	c.result = result
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	log.Printf("[PIPE] Run %s complete: %d detections, confidence %.2f",
		id, len(result.Detections), result.OverallConfidence)

	c.emitState()
	c.emit(Event{Type: EventResult, Data: result})

	// spoken feedback accompanies every completed run; replay and stop
	// remain available to the caller
	if _, err := c.speech.Speak(result.Summary); err != nil {
		log.Printf("[PIPE] Failed to start narration: %v", err)
	}
}

// Abort cancels the in-flight run and any speech, returning to
// asset-ready. Cancellation is internal and never reported as an
// error.
func (c *Controller) Abort() {
	c.mu.Lock()
	cancel := c.clearRunLocked()
	if c.state == StateProcessing {
		c.state = StateAssetReady
		c.progress = 0
		c.stage = ""
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.speech.Stop()
	c.emitState()
}

// Speak replays the current result's summary.
func (c *Controller) Speak() error {
	c.mu.Lock()
	result := c.result
	c.mu.Unlock()

	if result == nil {
		return ErrNoAsset
	}
	_, err := c.speech.Speak(result.Summary)
	return err
}

func (c *Controller) StopSpeech() {
	c.speech.Stop()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		State:     c.state,
		Progress:  c.progress,
		Stage:     c.stage,
		Asset:     c.media.Active(),
		Result:    c.result,
		ErrReason: c.errReason,
	}
	c.mu.Unlock()

	snap.Speaking = c.speech.Speaking()
	return snap
}

// OpenAsset returns a readable handle on the active asset for playback.
func (c *Controller) OpenAsset() (io.ReadSeekCloser, *media.Asset, error) {
	return c.media.OpenActive()
}

// PreviewFeed subscribes to live capture chunks for preview rendering.
func (c *Controller) PreviewFeed() (<-chan []byte, func()) {
	return c.media.SubscribePreview()
}

// Subscribe registers an event receiver. Slow receivers drop events
// rather than blocking the pipeline.
func (c *Controller) Subscribe() chan Event {
	ch := make(chan Event, 16)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()
	return ch
}

func (c *Controller) Unsubscribe(ch chan Event) {
	c.mu.Lock()
	if _, ok := c.subs[ch]; ok {
		delete(c.subs, ch)
		close(ch)
	}
	c.mu.Unlock()
}

// Shutdown releases the session's resources.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	cancel := c.clearRunLocked()
	subs := make([]chan Event, 0, len(c.subs))
	for ch := range c.subs {
		delete(c.subs, ch)
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.speech.Stop()
	c.media.StopLiveCapture()
	c.media.Release()
	for _, ch := range subs {
		close(ch)
	}
}

// clearRunLocked invalidates the current run id so late events from a
// superseded run are dropped at every application point. Caller holds
// c.mu and must invoke the returned cancel func after unlocking.
func (c *Controller) clearRunLocked() context.CancelFunc {
	cancel := c.runCancel
	c.runID = ""
	c.runCancel = nil
	return cancel
}

func (c *Controller) fail(reason string) {
	c.mu.Lock()
	c.state = StateError
	c.errReason = reason
	c.progress = 0
	c.stage = ""
	c.mu.Unlock()

	log.Printf("[PIPE] Error: %s", reason)
	c.emit(Event{Type: EventNotice, Data: map[string]string{"reason": reason}})
	c.emitState()
}

func (c *Controller) emitState() {
	snap := c.Snapshot()
	c.emit(Event{Type: EventState, Data: snap})
}

// emit delivers nonblocking, holding c.mu so a subscriber cannot be
// closed out from under an in-flight send. No caller holds c.mu when
// emitting, and the sends never block, so the lock is safe to keep.
func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
