// Package notify is the sink store operation outcomes are reported to.
// It holds no state that the stores depend on.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/transport"
)

// Notifier receives the final outcome of an operation and renders or forwards it.
type Notifier interface {
	Notify(ctx context.Context, outcome model.Outcome)
}

// Success builds a success outcome.
func Success(operation, title, message string) model.Outcome {
	return model.Outcome{
		Operation: operation,
		Success:   true,
		Title:     title,
		Message:   message,
		At:        time.Now(),
	}
}

// Failure builds a failure outcome from a classified error.
func Failure(operation string, err error) model.Outcome {
	kind := transport.KindOf(err)
	return model.Outcome{
		Operation: operation,
		Success:   false,
		Kind:      string(kind),
		Title:     transport.Title(kind),
		Message:   transport.MessageOf(err),
		At:        time.Now(),
	}
}

// Nop discards outcomes.
type Nop struct{}

func (Nop) Notify(context.Context, model.Outcome) {}

// Multi fans an outcome out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, outcome model.Outcome) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, outcome)
		}
	}
}

// Recorder keeps every outcome in memory.
type Recorder struct {
	mu       sync.Mutex
	outcomes []model.Outcome
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, outcome model.Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

// Outcomes returns a copy of everything recorded so far.
func (r *Recorder) Outcomes() []model.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Last returns the most recent outcome.
func (r *Recorder) Last() (model.Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return model.Outcome{}, false
	}
	return r.outcomes[len(r.outcomes)-1], true
}

// Drain returns and forgets everything recorded so far.
func (r *Recorder) Drain() []model.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.outcomes
	r.outcomes = nil
	return out
}
