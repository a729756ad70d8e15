package internal

import (
	"context"
	"time"
)

// ThinkingSteps emits pacing messages between pipeline stages. The delays
// exist only for perceived-latency shaping; disabling them changes nothing
// observable except timing.
type ThinkingSteps struct {
	callback func(string)
	enabled  bool
}

// NewThinkingSteps creates a step emitter. A nil callback drops messages.
// enabled=false turns every Step into an immediate no-op wait.
func NewThinkingSteps(callback func(string), enabled bool) *ThinkingSteps {
	return &ThinkingSteps{callback: callback, enabled: enabled}
}

// Step emits one message and waits the given duration, returning early when
// the context is canceled.
func (t *ThinkingSteps) Step(ctx context.Context, message string, d time.Duration) {
	if t.callback != nil {
		t.callback(message + "...")
	}
	if !t.enabled || d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Complete emits the final message of a sequence.
func (t *ThinkingSteps) Complete(message string) {
	if t.callback != nil {
		t.callback(message)
	}
}
