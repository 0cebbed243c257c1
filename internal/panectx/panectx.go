// Package panectx reads the four tmux display variables that identify the
// pane the current process is running in. It is the only place in steward
// that shells out to the terminal multiplexer.
package panectx

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"steward/internal/ids"
)

// Context is the pane location steward keys session state on.
type Context struct {
	PaneID      ids.PaneID
	Session     string
	Window      int
	Pane        int
	Location    string // "{session}:{window}.{pane}"
}

// ErrNoMultiplexer is returned when the current process is not running
// inside tmux, or any of the four display-variable queries fails. It is not
// a fatal error: callers treat it as "skip this state update".
var ErrNoMultiplexer = fmt.Errorf("panectx: not inside a multiplexer")

// Reader queries tmux for the current pane's display variables. The real
// implementation shells out to the tmux binary; tests substitute a fake.
type Reader interface {
	Read() (Context, error)
}

// TmuxReader is the production Reader, grounded on the same
// exec.Command/bytes.Buffer pattern the teacher uses for subprocess queries
// (see hostinfo.go's system_profiler call).
type TmuxReader struct {
	// Exec runs one tmux display-message query and returns its trimmed
	// single-line stdout. Overridable in tests.
	Exec func(format string) (string, error)
}

// NewTmuxReader constructs a Reader that shells out to the tmux binary.
func NewTmuxReader() *TmuxReader {
	return &TmuxReader{Exec: runTmuxDisplayMessage}
}

func runTmuxDisplayMessage(format string) (string, error) {
	cmd := exec.Command("tmux", "display-message", "-p", format)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// Read implements Reader. It returns ErrNoMultiplexer if TMUX is unset or
// any of the four queries fails.
func (r *TmuxReader) Read() (Context, error) {
	if strings.TrimSpace(os.Getenv("TMUX")) == "" {
		return Context{}, ErrNoMultiplexer
	}
	paneID, err := r.Exec("#{pane_id}")
	if err != nil || paneID == "" {
		return Context{}, ErrNoMultiplexer
	}
	session, err := r.Exec("#{session_name}")
	if err != nil || session == "" {
		return Context{}, ErrNoMultiplexer
	}
	windowStr, err := r.Exec("#{window_index}")
	if err != nil {
		return Context{}, ErrNoMultiplexer
	}
	paneStr, err := r.Exec("#{pane_index}")
	if err != nil {
		return Context{}, ErrNoMultiplexer
	}
	window, err := strconv.Atoi(windowStr)
	if err != nil {
		return Context{}, ErrNoMultiplexer
	}
	pane, err := strconv.Atoi(paneStr)
	if err != nil {
		return Context{}, ErrNoMultiplexer
	}
	return Context{
		PaneID:   ids.NewPaneID(paneID),
		Session:  session,
		Window:   window,
		Pane:     pane,
		Location: fmt.Sprintf("%s:%d.%d", session, window, pane),
	}, nil
}
