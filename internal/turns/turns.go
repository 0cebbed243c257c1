// Package turns pairs user/assistant messages from a transcript into turns:
// a user message and the assistant message that replies to it, linked by
// parent id.
package turns

import (
	"steward/internal/ids"
	"steward/internal/transcript"
)

// Turn is one user message paired with its assistant reply. Its identity is
// the user message's id.
type Turn struct {
	ID          ids.MessageID
	SessionID   ids.SessionID
	Cwd         string
	Timestamp   string
	UserText    string
	AssistantText string
}

// Pair builds the list of turns in source order from a flat message
// sequence. Orphans — a user message with no reply, or an assistant message
// with no parent or a parent that isn't a user message — are dropped
// silently, matching spec §4.8.
func Pair(messages []transcript.Message) []Turn {
	byID := make(map[ids.MessageID]transcript.Message, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}

	var out []Turn
	for _, m := range messages {
		if m.Role != transcript.RoleAssistant || !m.HasParent() {
			continue
		}
		parent, ok := byID[m.ParentID]
		if !ok || parent.Role != transcript.RoleUser {
			continue
		}
		out = append(out, Turn{
			ID:            parent.ID,
			SessionID:     parent.SessionID,
			Cwd:           parent.Cwd,
			Timestamp:     parent.Timestamp,
			UserText:      parent.Text,
			AssistantText: m.Text,
		})
	}
	return out
}
