// Package chunker splits a turn's combined text into overlapping chunks at
// semantic boundaries, grounded on the teacher's fixedChunk stride/overlap
// heuristic (internal/rag/chunker) generalized to a deterministic,
// fully-specified split-point search.
package chunker

import (
	"fmt"
	"strings"

	"steward/internal/ids"
	"steward/internal/turns"
)

const (
	// MaxChunkChars is tuned for a worst case of roughly 3 tokens per
	// character including rare multi-byte content, leaving headroom in an
	// 8192-token embedding context window.
	MaxChunkChars = 2500
	overlapRatio  = 0.10
	// OverlapChars is MaxChunkChars * overlapRatio.
	OverlapChars = 250
	// Stride is MaxChunkChars - OverlapChars.
	Stride = MaxChunkChars - OverlapChars
)

// Chunk is one piece of a turn's combined text, ready for embedding.
type Chunk struct {
	ID        ids.ChunkID
	SessionID ids.SessionID
	Cwd       string
	Timestamp string
	Text      string
}

// CombinedText renders a turn the way the chunker sees it: "User:
// {user_text}\n\nAssistant: {assistant_text}".
func CombinedText(t turns.Turn) string {
	return fmt.Sprintf("User: %s\n\nAssistant: %s", t.UserText, t.AssistantText)
}

// ChunkTurn splits one turn into a deterministic, ordered list of chunks. A
// turn whose combined text fits in a single chunk emits exactly one chunk
// carrying the turn id unchanged; otherwise chunks are emitted along
// Stride-spaced windows and identified "{turn_id}:{i}".
func ChunkTurn(t turns.Turn) []Chunk {
	text := CombinedText(t)
	l := len(text)

	if l <= MaxChunkChars {
		return []Chunk{newChunk(t, t.ID.String(), text)}
	}

	var out []Chunk
	i := 0
	for p := 0; p < l; p += Stride {
		if l-p <= MaxChunkChars {
			out = append(out, newChunk(t, chunkID(t.ID, i), text[p:l]))
			break
		}
		target := p + MaxChunkChars
		split := findSplitPoint(text, target)
		if split > l {
			split = l
		}
		out = append(out, newChunk(t, chunkID(t.ID, i), text[p:split]))
		i++
	}
	return out
}

func chunkID(turnID ids.MessageID, i int) string {
	return fmt.Sprintf("%s:%d", turnID.String(), i)
}

func newChunk(t turns.Turn, id string, text string) Chunk {
	return Chunk{
		ID:        ids.NewChunkID(id),
		SessionID: t.SessionID,
		Cwd:       t.Cwd,
		Timestamp: t.Timestamp,
		Text:      text,
	}
}

// findSplitPoint looks for the last "\n\n" in text[:target]; if found past
// target/2 it splits just after it. Failing that it looks for the last " "
// under the same guard. Failing that it hard-cuts at target. The target/2
// guard prevents pathological backtracking on texts with one early
// paragraph break or space.
func findSplitPoint(text string, target int) int {
	if target > len(text) {
		target = len(text)
	}
	window := text[:target]
	half := target / 2

	if q := strings.LastIndex(window, "\n\n"); q > half {
		return q + 2
	}
	if q := strings.LastIndex(window, " "); q > half {
		return q + 1
	}
	return target
}
