package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Report describes one Reconcile run.
type Report struct {
	// Pushed and PushFailed count per-list outcomes of the push phase.
	Pushed     int
	PushFailed int

	// Updated, Inserted and PullFailed count per-list outcomes of the pull phase.
	Updated    int
	Inserted   int
	PullFailed int

	// PushErr and PullErr are set when a phase could not run to the end,
	// typically because a snapshot could not be read.
	PushErr error
	PullErr error

	Duration time.Duration
}

// OK reports whether both phases completed without any failure.
func (r Report) OK() bool {
	return r.PushErr == nil && r.PullErr == nil && r.PushFailed == 0 && r.PullFailed == 0
}

// Offline reports whether the remote mirror looked unreachable.
func (r Report) Offline() bool {
	return model.IsRemote(r.PullErr) && r.Pushed == 0
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pushed %d", r.Pushed)
	if r.PushFailed > 0 {
		fmt.Fprintf(&b, " (%d failed)", r.PushFailed)
	}
	fmt.Fprintf(&b, ", pulled %d updated / %d new", r.Updated, r.Inserted)
	if r.PullFailed > 0 {
		fmt.Fprintf(&b, " (%d failed)", r.PullFailed)
	}
	if r.PushErr != nil {
		fmt.Fprintf(&b, "; push: %v", r.PushErr)
	}
	if r.PullErr != nil {
		fmt.Fprintf(&b, "; pull: %v", r.PullErr)
	}
	fmt.Fprintf(&b, " in %s", r.Duration.Round(time.Millisecond))
	return b.String()
}
