// Command hook is invoked by the upstream assistant on every lifecycle
// event. It must never block or fail the event producer: it always exits
// zero, and its logger is file-backed only so it never touches the stdio
// the producer is watching.
package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"steward/internal/config"
	"steward/internal/hookevent"
	"steward/internal/ids"
	"steward/internal/logging"
	"steward/internal/panectx"
	"steward/internal/sessionstore"
	"steward/internal/transition"
)

func main() {
	os.Exit(run())
}

// run performs the C6 state machine and always returns 0. It returns an int
// only so main can keep a single os.Exit call; no caller ever checks it.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		// Without config we still can't risk blocking the producer; best
		// effort with defaults baked into logging.Init("", "") is wrong
		// too (that would write to stdout), so give up silently.
		return 0
	}
	if err := config.EnsureStewardDir(cfg); err != nil {
		return 0
	}
	// logging.Init falls back to stdout (and reports to stderr) when the log
	// file cannot be opened, so make sure it opens before handing it over.
	logFile, err := os.OpenFile(cfg.HookLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0
	}
	logFile.Close()
	logging.Init(cfg.HookLogPath, "debug")

	started := time.Now()
	defer func() {
		log.Debug().Dur("elapsed", time.Since(started)).Msg("hook invocation complete")
	}()

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Debug().Err(err).Msg("failed to read stdin")
		return 0
	}

	event, ok := hookevent.Decode(body)
	if !ok {
		log.Debug().Msg("event did not decode to a known kind")
		return 0
	}
	envelope, ok := hookevent.DecodeEnvelope(body)
	if !ok {
		log.Debug().Msg("malformed envelope")
		return 0
	}

	reader := panectx.NewTmuxReader()
	paneCtx, err := reader.Read()
	if err != nil {
		log.Debug().Err(err).Msg("no pane context, skipping state update")
		return 0
	}

	store, err := sessionstore.Open(cfg.SessionDBPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open session store")
		return 0
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	if se, isEnd := event.(hookevent.SessionEnd); isEnd {
		log.Debug().Str("reason", se.Reason).Msg("session end, deleting pane record")
		if err := store.Delete(ctx, paneCtx.PaneID); err != nil {
			log.Error().Err(err).Msg("failed to delete pane record")
		}
		return 0
	}

	result := transition.Apply(event)
	if !result.Changed {
		log.Debug().Msg("no state change")
		return 0
	}

	input := sessionstore.UpsertInput{
		PaneID:         paneCtx.PaneID,
		TmuxSession:    paneCtx.Session,
		TmuxWindow:     paneCtx.Window,
		TmuxPane:       paneCtx.Pane,
		TmuxLocation:   paneCtx.Location,
		SessionID:      ids.NewSessionID(envelope.SessionID),
		Cwd:            envelope.Cwd,
		TranscriptPath: envelope.TranscriptPath,
		State:          result.State,
	}

	if err := store.Upsert(ctx, input); err != nil {
		log.Error().Err(err).Msg("failed to upsert session state")
	}
	return 0
}
