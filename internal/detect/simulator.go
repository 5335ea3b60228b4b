package detect

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Stages of one simulated run, in order. Progress advances in equal
// steps, one event per stage, ending at exactly 100.
var Stages = []string{"loading", "detecting", "summarizing"}

const (
	minDetections  = 2
	maxDetections  = 6
	minConfidence  = 0.70
	confidenceSpan = 0.29
)

// Simulator stands in for a real inference engine: it produces a
// bounded random set of detections with realistic confidences and a
// derived summary. It is cancellable at every stage boundary so a
// superseded run never delivers a stale result. A real engine can be
// substituted behind the same Run contract without touching callers.
type Simulator struct {
	// StageDelay is the fixed per-stage latency standing in for
	// inference time.
	StageDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator returns a simulator seeded for deterministic output.
// Seed 0 selects a time-based seed.
func NewSimulator(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		StageDelay: 400 * time.Millisecond,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Run walks the simulation stages, reporting progress after each one.
// The context is checked before every progress emission and before the
// final result is returned, so a cancelled run yields ctx.Err() and
// never a Result.
func (s *Simulator) Run(ctx context.Context, assetID string, onProgress func(stage string, pct int)) (*Result, error) {
	for i, stage := range Stages {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(stage, (i+1)*100/len(Stages))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detections := s.generate()
	return &Result{
		AssetID:           assetID,
		Detections:        detections,
		Summary:           BuildSummary(detections),
		OverallConfidence: MeanConfidence(detections),
		GeneratedAt:       time.Now(),
	}, nil
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.StageDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.StageDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// generate draws detections size-first so the frame-relative invariant
// (x+width <= 1, y+height <= 1) holds by construction.
func (s *Simulator) generate() []Detection {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := minDetections + s.rng.Intn(maxDetections-minDetections+1)
	detections := make([]Detection, 0, count)

	for i := 0; i < count; i++ {
		w := 0.10 + s.rng.Float64()*0.30
		h := 0.10 + s.rng.Float64()*0.30
		detections = append(detections, Detection{
			ID:         fmt.Sprintf("det-%d", i+1),
			Label:      Categories[s.rng.Intn(len(Categories))],
			Confidence: minConfidence + s.rng.Float64()*confidenceSpan,
			Box: Bounds{
				X:      s.rng.Float64() * (1 - w),
				Y:      s.rng.Float64() * (1 - h),
				Width:  w,
				Height: h,
			},
		})
	}

	return detections
}
