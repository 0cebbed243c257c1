package hookevent

import "testing"

func TestDecodeSessionStartDefaultsSource(t *testing.T) {
	ev, ok := Decode([]byte(`{"hook_event_name":"SessionStart"}`))
	if !ok {
		t.Fatal("expected ok")
	}
	ss, isSS := ev.(SessionStart)
	if !isSS {
		t.Fatalf("expected SessionStart, got %T", ev)
	}
	if ss.Source != SourceStartup {
		t.Fatalf("expected default source startup, got %q", ss.Source)
	}
}

func TestDecodeSessionStartResume(t *testing.T) {
	ev, ok := Decode([]byte(`{"hook_event_name":"SessionStart","source":"resume"}`))
	if !ok {
		t.Fatal("expected ok")
	}
	if ev.(SessionStart).Source != SourceResume {
		t.Fatalf("expected resume, got %v", ev)
	}
}

func TestDecodeStopDefaultsActiveFalse(t *testing.T) {
	ev, ok := Decode([]byte(`{"hook_event_name":"Stop"}`))
	if !ok {
		t.Fatal("expected ok")
	}
	if ev.(Stop).Active != false {
		t.Fatal("expected active=false default")
	}
}

func TestDecodePermissionRequestDefaultsToolName(t *testing.T) {
	ev, ok := Decode([]byte(`{"hook_event_name":"PermissionRequest"}`))
	if !ok {
		t.Fatal("expected ok")
	}
	if ev.(PermissionRequest).ToolName != "unknown" {
		t.Fatalf("expected default tool name unknown, got %q", ev.(PermissionRequest).ToolName)
	}
}

func TestDecodeNotificationElicitationDialog(t *testing.T) {
	ev, ok := Decode([]byte(`{"hook_event_name":"Notification","notification_type":"elicitation_dialog","message":"pick"}`))
	if !ok {
		t.Fatal("expected ok")
	}
	n := ev.(Notification)
	if n.Kind != KindElicitationDialog || n.IsUnknownKind() {
		t.Fatalf("expected elicitation_dialog kind, got %+v", n)
	}
	if n.Message != "pick" {
		t.Fatalf("expected message pick, got %q", n.Message)
	}
}

func TestDecodeNotificationPreservesUnknownKind(t *testing.T) {
	ev, ok := Decode([]byte(`{"hook_event_name":"Notification","notification_type":"something_new"}`))
	if !ok {
		t.Fatal("expected ok")
	}
	n := ev.(Notification)
	if !n.IsUnknownKind() || n.Unknown != "something_new" {
		t.Fatalf("expected unknown kind preserved, got %+v", n)
	}
}

func TestDecodeUnknownEventNameIsNotOk(t *testing.T) {
	_, ok := Decode([]byte(`{"hook_event_name":"SomethingFuture"}`))
	if ok {
		t.Fatal("expected not ok for unrecognized event name")
	}
}

func TestDecodeMalformedJSONIsNotOk(t *testing.T) {
	_, ok := Decode([]byte(`not json`))
	if ok {
		t.Fatal("expected not ok for malformed JSON")
	}
}

func TestDecodeSessionEndDefaultsReason(t *testing.T) {
	ev, ok := Decode([]byte(`{"hook_event_name":"SessionEnd"}`))
	if !ok {
		t.Fatal("expected ok")
	}
	if ev.(SessionEnd).Reason != "other" {
		t.Fatalf("expected default reason other, got %q", ev.(SessionEnd).Reason)
	}
}
