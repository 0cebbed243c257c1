// Package transition holds the pure event-to-state mapping that drives the
// session store. It has no side effects and carries no state of its own.
package transition

import "steward/internal/hookevent"

// AttentionReason is the cause of a NeedsAttention state.
type AttentionReason string

const (
	ReasonDone       AttentionReason = "done"
	ReasonPermission AttentionReason = "permission"
	ReasonQuestion   AttentionReason = "question"
)

// State is the per-pane attention state. The zero value is Working.
type State struct {
	NeedsAttention bool
	Reason         AttentionReason // only meaningful when NeedsAttention
}

// Working is the state a pane is in while the assistant is actively running.
var Working = State{NeedsAttention: false}

// NeedsAttention builds the NeedsAttention(reason) state.
func NeedsAttentionState(reason AttentionReason) State {
	return State{NeedsAttention: true, Reason: reason}
}

// Result is the outcome of applying the transition function to an event.
type Result struct {
	State   State // only meaningful when Changed is true and Delete is false
	Changed bool
	Delete  bool
}

func noChange() Result { return Result{} }
func changeTo(s State) Result { return Result{State: s, Changed: true} }
func deleteRecord() Result    { return Result{Delete: true} }

// Apply is the total, pure mapping described in spec §4.3.
func Apply(ev hookevent.Event) Result {
	switch e := ev.(type) {
	case hookevent.SessionStart:
		return changeTo(Working)
	case hookevent.UserPromptSubmit:
		return changeTo(Working)
	case hookevent.Stop:
		return changeTo(NeedsAttentionState(ReasonDone))
	case hookevent.PermissionRequest:
		return changeTo(NeedsAttentionState(ReasonPermission))
	case hookevent.Notification:
		if e.Kind == hookevent.KindElicitationDialog {
			return changeTo(NeedsAttentionState(ReasonQuestion))
		}
		return noChange()
	case hookevent.SessionEnd:
		return deleteRecord()
	default:
		return noChange()
	}
}
