package panectx

import (
	"errors"
	"os"
	"testing"
)

func TestReadNoMultiplexer(t *testing.T) {
	t.Setenv("TMUX", "")
	r := &TmuxReader{Exec: func(string) (string, error) { return "ok", nil }}
	_, err := r.Read()
	if !errors.Is(err, ErrNoMultiplexer) {
		t.Fatalf("expected ErrNoMultiplexer, got %v", err)
	}
}

func TestReadSuccess(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,1234,0")
	responses := map[string]string{
		"#{pane_id}":      "%3",
		"#{session_name}": "dev",
		"#{window_index}": "2",
		"#{pane_index}":   "1",
	}
	r := &TmuxReader{Exec: func(format string) (string, error) {
		v, ok := responses[format]
		if !ok {
			return "", os.ErrNotExist
		}
		return v, nil
	}}
	ctx, err := r.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Location != "dev:2.1" {
		t.Fatalf("expected location dev:2.1, got %q", ctx.Location)
	}
	if ctx.PaneID.String() != "%3" {
		t.Fatalf("expected pane id %%3, got %q", ctx.PaneID)
	}
}

func TestReadFailsOnBadWindowIndex(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,1234,0")
	r := &TmuxReader{Exec: func(format string) (string, error) {
		switch format {
		case "#{pane_id}":
			return "%1", nil
		case "#{session_name}":
			return "dev", nil
		case "#{window_index}":
			return "not-a-number", nil
		default:
			return "0", nil
		}
	}}
	_, err := r.Read()
	if !errors.Is(err, ErrNoMultiplexer) {
		t.Fatalf("expected ErrNoMultiplexer on malformed window index, got %v", err)
	}
}
