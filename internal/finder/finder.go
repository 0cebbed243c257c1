// Package finder joins vector-store search hits against live session-store
// state, so a result can tell the caller whether the session that produced
// it is still running in a terminal and, if so, where and in what state.
package finder

import (
	"context"
	"fmt"

	"steward/internal/embedclient"
	"steward/internal/ids"
	"steward/internal/sessionstore"
	"steward/internal/sparsevec"
	"steward/internal/transition"
	"steward/internal/vectorstore"
)

// Liveness is the result of joining a hit's session id against the session
// store: either the pane is still running it, or it isn't.
type Liveness struct {
	Running      bool
	TmuxLocation string
	State        transition.State
}

// Result is one search hit enriched with liveness.
type Result struct {
	ChunkID     string
	SessionID   string
	ProjectPath string
	Timestamp   string
	Content     string
	Score       float64
	Liveness    Liveness
}

// Query parameterizes one search.
type Query struct {
	Text           string
	Limit          int
	ProjectFilter  string
	ScoreThreshold *float64
	Hybrid         bool
}

// Finder embeds query text and searches the vector store, resolving live
// session state for every hit.
type Finder struct {
	Embed    *embedclient.Client
	Vector   *vectorstore.Client
	Sessions *sessionstore.Store
}

// New constructs a Finder.
func New(embed *embedclient.Client, vector *vectorstore.Client, sessions *sessionstore.Store) *Finder {
	return &Finder{Embed: embed, Vector: vector, Sessions: sessions}
}

// Search embeds q.Text with the same model the corpus was indexed with,
// queries the vector store, and resolves each hit's liveness against the
// session store.
func (f *Finder) Search(ctx context.Context, q Query) ([]Result, error) {
	vec, err := f.Embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("finder: embed query: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	sq := vectorstore.SearchQuery{
		Vector:         vec,
		Limit:          limit,
		ProjectFilter:  q.ProjectFilter,
		ScoreThreshold: q.ScoreThreshold,
	}
	if q.Hybrid {
		sq.SparseTerms = sparseTermMap(q.Text)
	}

	hits, err := f.Vector.Search(ctx, sq)
	if err != nil {
		return nil, fmt.Errorf("finder: search: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		liveness := f.resolveLiveness(ctx, h.SessionID)
		results = append(results, Result{
			ChunkID:     h.ChunkID,
			SessionID:   h.SessionID,
			ProjectPath: h.ProjectPath,
			Timestamp:   h.Timestamp,
			Content:     h.Content,
			Score:       h.Score,
			Liveness:    liveness,
		})
	}
	return results, nil
}

func sparseTermMap(text string) map[uint32]float32 {
	terms := sparsevec.Tokenize(text)
	if len(terms) == 0 {
		return nil
	}
	m := make(map[uint32]float32, len(terms))
	for _, t := range terms {
		m[t.Index] = t.Value
	}
	return m
}

func (f *Finder) resolveLiveness(ctx context.Context, sessionID string) Liveness {
	if f.Sessions == nil || sessionID == "" {
		return Liveness{Running: false}
	}
	rec, ok, err := f.Sessions.GetBySessionID(ctx, ids.NewSessionID(sessionID))
	if err != nil || !ok {
		return Liveness{Running: false}
	}
	return Liveness{Running: true, TmuxLocation: rec.TmuxLocation, State: rec.State}
}
