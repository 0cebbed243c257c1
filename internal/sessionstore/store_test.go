package sessionstore

import (
	"context"
	"path/filepath"
	"testing"

	"steward/internal/ids"
	"steward/internal/transition"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertCreatesRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, UpsertInput{
		PaneID:         ids.NewPaneID("%1"),
		TmuxSession:    "dev",
		TmuxWindow:     0,
		TmuxPane:       1,
		TmuxLocation:   "dev:0.1",
		SessionID:      ids.NewSessionID("sess-a"),
		Cwd:            "/home/user/proj",
		TranscriptPath: "/home/user/.claude/proj/sess-a.jsonl",
		State:          transition.Working,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rec, ok, err := s.GetBySessionID(ctx, ids.NewSessionID("sess-a"))
	if err != nil || !ok {
		t.Fatalf("GetBySessionID: ok=%v err=%v", ok, err)
	}
	if rec.PaneID.String() != "%1" {
		t.Fatalf("unexpected pane id %q", rec.PaneID)
	}
	if rec.State != transition.Working {
		t.Fatalf("unexpected state %+v", rec.State)
	}
	if rec.FirstSeen.IsZero() || rec.LastUpdated.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestUpsertPreservesFirstSeenAndTracksLastSessionID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	pane := ids.NewPaneID("%2")

	base := UpsertInput{
		PaneID:         pane,
		TmuxSession:    "dev",
		TmuxWindow:     0,
		TmuxPane:       2,
		TmuxLocation:   "dev:0.2",
		SessionID:      ids.NewSessionID("sess-old"),
		Cwd:            "/repo",
		TranscriptPath: "/repo/sess-old.jsonl",
		State:          transition.NeedsAttentionState(transition.ReasonDone),
	}
	if err := s.Upsert(ctx, base); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	firstRec, _, _ := s.GetBySessionID(ctx, ids.NewSessionID("sess-old"))

	resumed := base
	resumed.SessionID = ids.NewSessionID("sess-new")
	resumed.State = transition.Working
	if err := s.Upsert(ctx, resumed); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rec, ok, err := s.GetBySessionID(ctx, ids.NewSessionID("sess-new"))
	if err != nil || !ok {
		t.Fatalf("GetBySessionID after resume: ok=%v err=%v", ok, err)
	}
	if rec.LastSessionID.String() != "sess-old" {
		t.Fatalf("expected last_session_id sess-old, got %q", rec.LastSessionID)
	}
	if !rec.FirstSeen.Equal(firstRec.FirstSeen) {
		t.Fatalf("expected first_seen preserved: %v != %v", rec.FirstSeen, firstRec.FirstSeen)
	}

	// Resolving by the old session id must still find the pane via
	// last_session_id, since search results may reference a pre-resume
	// session id.
	byOld, ok, err := s.GetBySessionID(ctx, ids.NewSessionID("sess-old"))
	if err != nil || !ok {
		t.Fatalf("GetBySessionID by old id: ok=%v err=%v", ok, err)
	}
	if byOld.PaneID != pane {
		t.Fatalf("expected pane %v, got %v", pane, byOld.PaneID)
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	pane := ids.NewPaneID("%3")

	if err := s.Upsert(ctx, UpsertInput{
		PaneID: pane, TmuxSession: "dev", TmuxLocation: "dev:0.3",
		SessionID: ids.NewSessionID("sess-x"), Cwd: "/x", TranscriptPath: "/x.jsonl",
		State: transition.Working,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := s.Delete(ctx, pane); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, ok, err := s.GetBySessionID(ctx, ids.NewSessionID("sess-x"))
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if ok {
		t.Fatal("expected row to be gone after delete")
	}
}

func TestDeleteNonexistentPaneIsNotError(t *testing.T) {
	s := openTestStore(t)
	if err := s.Delete(context.Background(), ids.NewPaneID("%99")); err != nil {
		t.Fatalf("Delete on missing pane should not error: %v", err)
	}
}

func TestListOrdersByLastUpdatedDescending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"sess-1", "sess-2"} {
		if err := s.Upsert(ctx, UpsertInput{
			PaneID: ids.NewPaneID("%" + string(rune('a'+i))), TmuxSession: "dev", TmuxLocation: "dev:0.0",
			SessionID: ids.NewSessionID(id), Cwd: "/x", TranscriptPath: "/x.jsonl",
			State: transition.Working,
		}); err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recs))
	}
	if recs[0].LastUpdated.Before(recs[1].LastUpdated) {
		t.Fatalf("expected rows in descending last_updated order, got %v then %v", recs[0].LastUpdated, recs[1].LastUpdated)
	}
}
