// Package opstate is the idle/pending/error status that every store operation kind carries.
package opstate

import "github.com/capitalize-ai/conversational-client/internal/transport"

// State is the lifecycle of one operation kind: idle → pending → idle | error.
type State int

const (
	Idle State = iota
	Pending
	Error
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// Status is the in-flight/error status of one operation kind.
type Status struct {
	State State
	Err   string
	Kind  transport.Kind
}

// Pending reports whether the operation is in flight.
func (s Status) Pending() bool { return s.State == Pending }

// Failed reports whether the most recent run ended in error.
func (s Status) Failed() bool { return s.State == Error }

// Running returns the pending status.
func Running() Status { return Status{State: Pending} }

// Done returns the idle status.
func Done() Status { return Status{State: Idle} }

// Failure returns the error status carrying err's classification.
func Failure(err error) Status {
	return Status{
		State: Error,
		Err:   transport.MessageOf(err),
		Kind:  transport.KindOf(err),
	}
}
