// Package hookevent decodes one lifecycle-event record from the assistant
// hook protocol into a typed Event. Decoding never panics or returns an
// error outward: a malformed or unrecognized record simply yields ok=false,
// matching the hook entry point's must-never-fail-loudly contract.
package hookevent

import "encoding/json"

// SessionSource is how a SessionStart event came about.
type SessionSource string

const (
	SourceStartup SessionSource = "startup"
	SourceResume  SessionSource = "resume"
	SourceClear   SessionSource = "clear"
	SourceCompact SessionSource = "compact"
)

// NotificationKind tags a Notification event. Unknown kinds are preserved
// verbatim via Unknown rather than dropped, so new upstream kinds never
// break decoding.
type NotificationKind string

const (
	KindElicitationDialog NotificationKind = "elicitation_dialog"
	KindPermissionPrompt  NotificationKind = "permission_prompt"
	KindIdlePrompt        NotificationKind = "idle_prompt"
	KindAuthSuccess       NotificationKind = "auth_success"
)

// Event is the sum type of lifecycle events the hook can observe. Each
// concrete type below implements it; the zero value is never a valid Event.
type Event interface {
	eventKind() string
}

type SessionStart struct{ Source SessionSource }

func (SessionStart) eventKind() string { return "SessionStart" }

type Stop struct{ Active bool }

func (Stop) eventKind() string { return "Stop" }

type PermissionRequest struct {
	ToolName  string
	ToolInput json.RawMessage
}

func (PermissionRequest) eventKind() string { return "PermissionRequest" }

type UserPromptSubmit struct{ Prompt string }

func (UserPromptSubmit) eventKind() string { return "UserPromptSubmit" }

type SessionEnd struct{ Reason string }

func (SessionEnd) eventKind() string { return "SessionEnd" }

// Notification carries either a recognized NotificationKind or an
// Unknown(string) catch-all preserving the raw kind string.
type Notification struct {
	Kind    NotificationKind
	Unknown string // set when Kind doesn't match a known constant
	Message string
}

func (Notification) eventKind() string { return "Notification" }

// IsUnknownKind reports whether this notification's kind is a forward-
// compatible unknown rather than one of the recognized constants.
func (n Notification) IsUnknownKind() bool { return n.Unknown != "" }

// rawEvent mirrors the JSON shape documented in spec §6: a dispatch field
// plus a flat bag of event-specific optional fields.
type rawEvent struct {
	HookEventName    string          `json:"hook_event_name"`
	SessionID        string          `json:"session_id"`
	Cwd              string          `json:"cwd"`
	TranscriptPath   string          `json:"transcript_path"`
	Source           string          `json:"source"`
	StopHookActive   *bool           `json:"stop_hook_active"`
	ToolName         string          `json:"tool_name"`
	ToolInput        json.RawMessage `json:"tool_input"`
	Prompt           string          `json:"prompt"`
	Reason           string          `json:"reason"`
	NotificationType string          `json:"notification_type"`
	Message          string          `json:"message"`
}

// Envelope carries the fields common to every hook record, regardless of
// which event kind it decodes to. The hook entry point needs these to key
// its session-store write; they are not part of the C3 transition function's
// input, so they live outside the Event sum type.
type Envelope struct {
	SessionID      string
	Cwd            string
	TranscriptPath string
}

// DecodeEnvelope extracts the common fields from a hook record, independent
// of whether its hook_event_name is recognized. ok is false only for
// malformed JSON.
func DecodeEnvelope(data []byte) (Envelope, bool) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, false
	}
	return Envelope{SessionID: raw.SessionID, Cwd: raw.Cwd, TranscriptPath: raw.TranscriptPath}, true
}

var knownNotificationKinds = map[string]NotificationKind{
	"elicitation_dialog": KindElicitationDialog,
	"permission_prompt":  KindPermissionPrompt,
	"idle_prompt":        KindIdlePrompt,
	"auth_success":       KindAuthSuccess,
}

// Decode parses one JSON event record. ok is false for malformed input or an
// unrecognized hook_event_name; Decode never returns an error because the
// hook path must absorb every failure.
func Decode(data []byte) (event Event, ok bool) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	return decodeRaw(raw)
}

func decodeRaw(raw rawEvent) (Event, bool) {
	switch raw.HookEventName {
	case "SessionStart":
		src := SessionSource(raw.Source)
		if src == "" {
			src = SourceStartup
		}
		return SessionStart{Source: src}, true
	case "Stop":
		active := false
		if raw.StopHookActive != nil {
			active = *raw.StopHookActive
		}
		return Stop{Active: active}, true
	case "PermissionRequest":
		toolName := raw.ToolName
		if toolName == "" {
			toolName = "unknown"
		}
		return PermissionRequest{ToolName: toolName, ToolInput: raw.ToolInput}, true
	case "UserPromptSubmit":
		return UserPromptSubmit{Prompt: raw.Prompt}, true
	case "SessionEnd":
		reason := raw.Reason
		if reason == "" {
			reason = "other"
		}
		return SessionEnd{Reason: reason}, true
	case "Notification":
		n := Notification{Message: raw.Message}
		if kind, known := knownNotificationKinds[raw.NotificationType]; known {
			n.Kind = kind
		} else {
			n.Unknown = raw.NotificationType
			if n.Unknown == "" {
				n.Unknown = "unknown"
			}
		}
		return n, true
	default:
		return nil, false
	}
}
