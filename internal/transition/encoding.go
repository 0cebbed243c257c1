package transition

import "fmt"

const (
	encWorking             = "working"
	encNeedsAttentionDone  = "needs_attention:done"
	encNeedsAttentionPerm  = "needs_attention:permission"
	encNeedsAttentionQuest = "needs_attention:question"
)

// Encode maps a State to its single canonical string encoding. It is a
// bijection over the four valid states; Decode is its inverse.
func Encode(s State) string {
	if !s.NeedsAttention {
		return encWorking
	}
	switch s.Reason {
	case ReasonDone:
		return encNeedsAttentionDone
	case ReasonPermission:
		return encNeedsAttentionPerm
	case ReasonQuestion:
		return encNeedsAttentionQuest
	default:
		// Unreachable for states built via Working/NeedsAttentionState, but
		// Encode must still be total.
		return encNeedsAttentionDone
	}
}

// Decode is the inverse of Encode. It fails rather than defaulting when
// given any string outside the four valid encodings.
func Decode(encoded string) (State, error) {
	switch encoded {
	case encWorking:
		return Working, nil
	case encNeedsAttentionDone:
		return NeedsAttentionState(ReasonDone), nil
	case encNeedsAttentionPerm:
		return NeedsAttentionState(ReasonPermission), nil
	case encNeedsAttentionQuest:
		return NeedsAttentionState(ReasonQuestion), nil
	default:
		return State{}, fmt.Errorf("transition: invalid state encoding %q", encoded)
	}
}
