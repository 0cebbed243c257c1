package finder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"steward/internal/embedclient"
	"steward/internal/ids"
	"steward/internal/sessionstore"
	"steward/internal/transition"
	"steward/internal/vectorstore"
)

func fakeEmbedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.1, 0.2, 0.3}}})
	}))
}

func fakeVectorServer(t *testing.T, chunkID, sessionID string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score": 0.87,
					"payload": map[string]string{
						"chunk_id":     chunkID,
						"session_id":   sessionID,
						"project_path": "/home/user/proj",
						"content":      "some matching text",
					},
				},
			},
		})
	}))
}

func openTestStore(t *testing.T) *sessionstore.Store {
	t.Helper()
	s, err := sessionstore.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSearchMarksHitAsRunningWhenSessionIsLive(t *testing.T) {
	embedTS := fakeEmbedServer(t)
	defer embedTS.Close()
	vectorTS := fakeVectorServer(t, "c1", "sess-live")
	defer vectorTS.Close()

	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, sessionstore.UpsertInput{
		PaneID:       ids.NewPaneID("%1"),
		TmuxSession:  "dev",
		TmuxWindow:   1,
		TmuxPane:     0,
		TmuxLocation: "dev:1.0",
		SessionID:    ids.NewSessionID("sess-live"),
		State:        transition.NeedsAttentionState(transition.ReasonDone),
	}))

	f := New(
		embedclient.New(embedclient.Config{BaseURL: embedTS.URL}),
		vectorstore.New(vectorstore.Config{BaseURL: vectorTS.URL, Collection: "chunks"}),
		store,
	)

	results, err := f.Search(ctx, Query{Text: "find me something", Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Liveness.Running)
	require.Equal(t, "dev:1.0", results[0].Liveness.TmuxLocation)
	require.True(t, results[0].Liveness.State.NeedsAttention)
}

func TestSearchMarksHitAsNotRunningWhenSessionIsAbsent(t *testing.T) {
	embedTS := fakeEmbedServer(t)
	defer embedTS.Close()
	vectorTS := fakeVectorServer(t, "c2", "sess-gone")
	defer vectorTS.Close()

	store := openTestStore(t)
	f := New(
		embedclient.New(embedclient.Config{BaseURL: embedTS.URL}),
		vectorstore.New(vectorstore.Config{BaseURL: vectorTS.URL, Collection: "chunks"}),
		store,
	)

	results, err := f.Search(context.Background(), Query{Text: "anything"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Liveness.Running)
}

func TestSearchDefaultsLimitToTen(t *testing.T) {
	embedTS := fakeEmbedServer(t)
	defer embedTS.Close()

	var capturedLimit int
	vectorTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		capturedLimit = int(body["limit"].(float64))
		json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	defer vectorTS.Close()

	f := New(
		embedclient.New(embedclient.Config{BaseURL: embedTS.URL}),
		vectorstore.New(vectorstore.Config{BaseURL: vectorTS.URL, Collection: "chunks"}),
		openTestStore(t),
	)

	_, err := f.Search(context.Background(), Query{Text: "q"})
	require.NoError(t, err)
	require.Equal(t, 10, capturedLimit)
}

func TestSearchHybridIncludesSparseVector(t *testing.T) {
	embedTS := fakeEmbedServer(t)
	defer embedTS.Close()

	sawSparse := false
	vectorTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		_, sawSparse = body["sparse_vector"]
		json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	defer vectorTS.Close()

	f := New(
		embedclient.New(embedclient.Config{BaseURL: embedTS.URL}),
		vectorstore.New(vectorstore.Config{BaseURL: vectorTS.URL, Collection: "chunks"}),
		openTestStore(t),
	)

	_, err := f.Search(context.Background(), Query{Text: "hybrid terms here", Hybrid: true})
	require.NoError(t, err)
	require.True(t, sawSparse)
}
