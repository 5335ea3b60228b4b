package pipeline

import (
	"errors"

	"github.com/visioncue/visioncue/internal/detect"
	"github.com/visioncue/visioncue/internal/media"
)

var (
	ErrNoAsset = errors.New("pipeline: no media asset selected")

	// ErrRecoveryRequired rejects processing from the error state:
	// only a fresh selection or capture leaves it.
	ErrRecoveryRequired = errors.New("pipeline: select or record a new video to recover")
)

// State is the pipeline's single current state. Recording is an
// orthogonal acquisition mode entered from idle or asset-ready.
type State string

const (
	StateIdle        State = "idle"
	StateAssetReady  State = "asset_ready"
	StateProcessing  State = "processing"
	StateResultReady State = "result_ready"
	StateRecording   State = "recording"
	StateError       State = "error"
)

// Snapshot is a consistent read of everything the UI layer renders.
type Snapshot struct {
	State     State          `json:"state"`
	Progress  int            `json:"progress"`
	Stage     string         `json:"stage,omitempty"`
	Asset     *media.Asset   `json:"asset,omitempty"`
	Result    *detect.Result `json:"result,omitempty"`
	ErrReason string         `json:"errorReason,omitempty"`
	Speaking  bool           `json:"speaking"`
}

// Event types pushed to subscribers.
const (
	EventState    = "state"
	EventProgress = "progress"
	EventResult   = "result"
	EventSpeech   = "speech"
	EventNotice   = "notice"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
