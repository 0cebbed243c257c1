// Package sessionstore persists per-pane attention state in a small
// embedded SQLite database. Pane id is the primary key; session id is a
// mutable attribute because it rotates across resumes (see spec §9 "Primary
// key is pane, not session").
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"steward/internal/ids"
	"steward/internal/transition"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	pane_id          TEXT PRIMARY KEY,
	tmux_session     TEXT NOT NULL,
	tmux_window      INTEGER NOT NULL,
	tmux_pane        INTEGER NOT NULL,
	tmux_location    TEXT NOT NULL,
	session_id       TEXT NOT NULL,
	cwd              TEXT NOT NULL,
	transcript_path  TEXT NOT NULL,
	state            TEXT NOT NULL,
	first_seen       TEXT NOT NULL,
	last_updated     TEXT NOT NULL,
	last_session_id  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id);
CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
`

// Record is one pane-keyed session row.
type Record struct {
	PaneID         ids.PaneID
	TmuxSession    string
	TmuxWindow     int
	TmuxPane       int
	TmuxLocation   string
	SessionID      ids.SessionID
	Cwd            string
	TranscriptPath string
	State          transition.State
	FirstSeen      time.Time
	LastUpdated    time.Time
	LastSessionID  ids.SessionID
}

// Store wraps the embedded database. Safe for concurrent use from a single
// process; cross-process concurrency relies on SQLite's own file locking,
// per spec §5.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open %s: %w", path, err)
	}
	// A single writer connection avoids SQLITE_BUSY under the hook's tight
	// latency budget; reads and writes both funnel through it.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sessionstore: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// UpsertInput describes the fields a lifecycle event can update.
type UpsertInput struct {
	PaneID         ids.PaneID
	TmuxSession    string
	TmuxWindow     int
	TmuxPane       int
	TmuxLocation   string
	SessionID      ids.SessionID
	Cwd            string
	TranscriptPath string
	State          transition.State
}

// Upsert creates or updates the row for in.PaneID. first_seen is preserved
// across updates; last_updated is refreshed to now; last_session_id is set
// to the previous session_id only when the incoming session id differs from
// what's currently stored (resume correlation, spec §3/§4.5). All statements
// are parameterized, resolving REDESIGN open question #1.
func (s *Store) Upsert(ctx context.Context, in UpsertInput) error {
	// Fixed-width fractional seconds, so the TEXT column sorts in time order
	// for ORDER BY last_updated (RFC3339Nano trims trailing zeros).
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sessionstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingSessionID string
	var firstSeen string
	err = tx.QueryRowContext(ctx,
		`SELECT session_id, first_seen FROM sessions WHERE pane_id = ?`, in.PaneID.String(),
	).Scan(&existingSessionID, &firstSeen)

	lastSessionID := ""
	switch {
	case err == sql.ErrNoRows:
		firstSeen = now
	case err != nil:
		return fmt.Errorf("sessionstore: lookup existing row: %w", err)
	default:
		if existingSessionID != "" && existingSessionID != in.SessionID.String() {
			lastSessionID = existingSessionID
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (pane_id, tmux_session, tmux_window, tmux_pane, tmux_location,
			session_id, cwd, transcript_path, state, first_seen, last_updated, last_session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pane_id) DO UPDATE SET
			tmux_session = excluded.tmux_session,
			tmux_window = excluded.tmux_window,
			tmux_pane = excluded.tmux_pane,
			tmux_location = excluded.tmux_location,
			session_id = excluded.session_id,
			cwd = excluded.cwd,
			transcript_path = excluded.transcript_path,
			state = excluded.state,
			last_updated = excluded.last_updated,
			last_session_id = CASE WHEN excluded.last_session_id != '' THEN excluded.last_session_id ELSE sessions.last_session_id END
	`,
		in.PaneID.String(), in.TmuxSession, in.TmuxWindow, in.TmuxPane, in.TmuxLocation,
		in.SessionID.String(), in.Cwd, in.TranscriptPath, transition.Encode(in.State),
		firstSeen, now, lastSessionID,
	)
	if err != nil {
		return fmt.Errorf("sessionstore: upsert: %w", err)
	}
	return tx.Commit()
}

// Delete removes the row for paneID. Deleting a nonexistent pane is not an
// error.
func (s *Store) Delete(ctx context.Context, paneID ids.PaneID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE pane_id = ?`, paneID.String())
	if err != nil {
		return fmt.Errorf("sessionstore: delete: %w", err)
	}
	return nil
}

// GetBySessionID finds the live pane running the given assistant session,
// falling back to last_session_id for resume correlation (a search hit's
// session id may predate the most recent resume).
func (s *Store) GetBySessionID(ctx context.Context, sessionID ids.SessionID) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pane_id, tmux_session, tmux_window, tmux_pane, tmux_location,
			session_id, cwd, transcript_path, state, first_seen, last_updated, last_session_id
		FROM sessions WHERE session_id = ? OR last_session_id = ?
		ORDER BY last_updated DESC LIMIT 1`,
		sessionID.String(), sessionID.String(),
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("sessionstore: get by session id: %w", err)
	}
	return rec, true, nil
}

// List returns every pane-keyed row, for dashboard-style consumers.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pane_id, tmux_session, tmux_window, tmux_pane, tmux_location,
			session_id, cwd, transcript_path, state, first_seen, last_updated, last_session_id
		FROM sessions ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, fmt.Errorf("sessionstore: scan row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (Record, error)     { return scanInto(row) }
func scanRecordRows(rows *sql.Rows) (Record, error) { return scanInto(rows) }

func scanInto(sc scanner) (Record, error) {
	var (
		rec                                   Record
		paneID, sessionID, lastSessionID      string
		stateEnc, firstSeen, lastUpdated      string
	)
	if err := sc.Scan(&paneID, &rec.TmuxSession, &rec.TmuxWindow, &rec.TmuxPane, &rec.TmuxLocation,
		&sessionID, &rec.Cwd, &rec.TranscriptPath, &stateEnc, &firstSeen, &lastUpdated, &lastSessionID); err != nil {
		return Record{}, err
	}
	rec.PaneID = ids.NewPaneID(paneID)
	rec.SessionID = ids.NewSessionID(sessionID)
	rec.LastSessionID = ids.NewSessionID(lastSessionID)
	state, err := transition.Decode(stateEnc)
	if err != nil {
		return Record{}, fmt.Errorf("corrupt state encoding for pane %s: %w", paneID, err)
	}
	rec.State = state
	if t, err := time.Parse(time.RFC3339Nano, firstSeen); err == nil {
		rec.FirstSeen = t
	}
	if t, err := time.Parse(time.RFC3339Nano, lastUpdated); err == nil {
		rec.LastUpdated = t
	}
	return rec, nil
}
