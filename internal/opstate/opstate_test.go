package opstate

import (
	"errors"
	"testing"

	"github.com/capitalize-ai/conversational-client/internal/transport"
)

func TestFailureCarriesClassification(t *testing.T) {
	st := Failure(transport.NewError(transport.KindForbidden, 403, "nope"))
	if !st.Failed() || st.Kind != transport.KindForbidden || st.Err != "nope" {
		t.Fatalf("status = %+v", st)
	}

	st = Failure(errors.New("boom"))
	if st.Kind != transport.KindOther || st.Err != "boom" {
		t.Fatalf("plain error status = %+v", st)
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{Idle: "idle", Pending: "pending", Error: "error"} {
		if st.String() != want {
			t.Fatalf("%d.String() = %q", st, st.String())
		}
	}
	if !Running().Pending() || Done().Pending() {
		t.Fatalf("constructors")
	}
}
