// Package transcript streams a single assistant transcript file as a lazy
// sequence of decoded messages. The file is newline-delimited JSON,
// append-only; unrecognized record types (progress markers, file-history
// entries, and the like) are skipped rather than failing the read.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"steward/internal/ids"
)

// Role distinguishes the two message kinds carried in a transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one decoded transcript record of type user or assistant.
type Message struct {
	Role      Role
	ID        ids.MessageID
	ParentID  ids.MessageID // zero value (empty string) when absent
	SessionID ids.SessionID
	Timestamp string // ISO-8601, kept as the raw string; nothing here parses it
	Cwd       string
	Text      string
}

// HasParent reports whether ParentID was present on the record.
func (m Message) HasParent() bool { return m.ParentID.String() != "" }

type rawRecord struct {
	Type       string          `json:"type"`
	UUID       string          `json:"uuid"`
	ParentUUID string          `json:"parentUuid"`
	SessionID  string          `json:"sessionId"`
	Timestamp  string          `json:"timestamp"`
	Cwd        string          `json:"cwd"`
	Message    rawMessageField `json:"message"`
}

type rawMessageField struct {
	Content json.RawMessage `json:"content"`
}

type rawContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reader streams messages out of one transcript file in source order. It
// does not load the whole file into memory: each call to Next reads and
// decodes the next line lazily, so reading is restartable simply by
// constructing a new Reader over the same path.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	err     error
}

// Open opens path for streaming. Callers must call Close when done.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	// Transcript lines can carry large tool outputs; grow well past the
	// scanner's 64KiB default rather than truncating a message mid-record.
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 16*1024*1024)
	return &Reader{scanner: sc, closer: f}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.closer.Close() }

// Err returns the first error encountered while scanning, if any. It should
// be checked after Next returns false.
func (r *Reader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.scanner.Err()
}

// Next advances to the next user or assistant message, skipping any other
// record types and any line that fails to decode. It returns false at EOF
// or on an unrecoverable scan error (check Err).
func (r *Reader) Next() (Message, bool) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		var raw rawRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		msg, ok, err := decodeMessage(raw)
		if err != nil {
			r.err = err
			return Message{}, false
		}
		if ok {
			return msg, true
		}
	}
	return Message{}, false
}

func decodeMessage(raw rawRecord) (Message, bool, error) {
	var role Role
	switch raw.Type {
	case "user":
		role = RoleUser
	case "assistant":
		role = RoleAssistant
	default:
		return Message{}, false, nil
	}

	text, err := extractText(role, raw.Message.Content)
	if err != nil {
		return Message{}, false, nil
	}

	msg := Message{
		Role:      role,
		ID:        ids.NewMessageID(raw.UUID),
		ParentID:  ids.NewMessageID(raw.ParentUUID),
		SessionID: ids.NewSessionID(raw.SessionID),
		Timestamp: raw.Timestamp,
		Cwd:       raw.Cwd,
		Text:      text,
	}
	return msg, true, nil
}

// extractText handles both wire shapes for message.content: a bare string
// (always the case for user records) or an array of {type, text} items
// (assistant records). Non-text items are dropped; retained items are
// joined with a single newline.
func extractText(role Role, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var items []rawContentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", fmt.Errorf("transcript: unrecognized content shape for %s message: %w", role, err)
	}
	var parts []string
	for _, item := range items {
		if item.Type != "text" {
			continue
		}
		parts = append(parts, item.Text)
	}
	return strings.Join(parts, "\n"), nil
}
