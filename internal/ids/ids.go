// Package ids defines the opaque identifier types passed between steward's
// components. Each wraps a plain string but is a distinct Go type, so
// passing a SessionID where a PaneID is expected is a compile error rather
// than a runtime bug.
package ids

// PaneID identifies a terminal-multiplexer pane. It is stable for the
// lifetime of the pane and is the primary key of the session store.
type PaneID string

// SessionID identifies one assistant-process invocation. It rotates across
// resumes and must never be used as a lookup key in place of PaneID.
type SessionID string

// MessageID identifies one transcript message (user or assistant turn).
type MessageID string

// ChunkID identifies one embedded chunk, either a turn's MessageID verbatim
// or "{turn_id}:{index}" for a multi-chunk turn.
type ChunkID string

// String unwraps the identifier for I/O (JSON fields, SQL parameters, HTTP
// payloads). It is the only way to get a plain string back out.
func (p PaneID) String() string    { return string(p) }
func (s SessionID) String() string { return string(s) }
func (m MessageID) String() string { return string(m) }
func (c ChunkID) String() string   { return string(c) }

// NewPaneID wraps a known-good string as a PaneID.
func NewPaneID(s string) PaneID { return PaneID(s) }

// NewSessionID wraps a known-good string as a SessionID.
func NewSessionID(s string) SessionID { return SessionID(s) }

// NewMessageID wraps a known-good string as a MessageID.
func NewMessageID(s string) MessageID { return MessageID(s) }

// NewChunkID wraps a known-good string as a ChunkID.
func NewChunkID(s string) ChunkID { return ChunkID(s) }
