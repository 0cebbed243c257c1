// Package vectorstore is a hand-rolled REST client against a Qdrant-shaped
// vector database. The teacher has a gRPC client for Qdrant
// (internal/persistence/databases/qdrant_vector.go), but the wire shapes
// this system is specified against — PUT .../points?wait=true, POST
// .../points/scroll, POST .../points/search with a "dense" named vector and
// result.status == "completed" — are REST JSON, not the gRPC surface, so
// this client follows the net/http pattern from the teacher's
// internal/embedding/client.go and internal/observability/httpclient.go
// instead.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config addresses one collection in the store.
type Config struct {
	BaseURL    string
	Collection string
	Dimension  int
	Metric     string
}

// Client talks to the vector store's REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Client with an otelhttp-instrumented transport, the same
// instrumentation the teacher wraps its own outbound clients in.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Point is one embedded chunk ready for upsert.
type Point struct {
	ChunkID     string
	SessionID   string
	ProjectPath string
	Timestamp   string
	Content     string
	Context     string // optional; empty means omit
	Vector      []float32
	SparseTerms map[uint32]float32 // optional hybrid term vector; nil disables it
}

// PointID derives the numeric point id the store requires from a chunk id:
// FNV-1a 32-bit hash of the string, taken as a signed int32 and
// absolute-valued. At the int32 minimum, where the absolute value
// overflows, the sign bit is cleared instead, giving 0.
// The result always falls in [0, 2^31), matching the store's id range.
// This intentionally does not fix the spec's own flagged collision risk at
// this width; see the decision recorded for Open Question 3 for why.
func PointID(chunkID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chunkID))
	v := int32(h.Sum32())
	if v < 0 {
		v = -v
	}
	return uint32(v) & 0x7fffffff
}

type upsertPayload struct {
	ChunkID     string `json:"chunk_id"`
	SessionID   string `json:"session_id"`
	ProjectPath string `json:"project_path"`
	Timestamp   string `json:"timestamp"`
	Content     string `json:"content"`
	Context     string `json:"context,omitempty"`
}

type upsertVector struct {
	Dense  []float32          `json:"dense"`
	Sparse *sparseVectorWire  `json:"sparse,omitempty"`
}

type sparseVectorWire struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

type upsertPoint struct {
	ID      uint32        `json:"id"`
	Vector  upsertVector  `json:"vector"`
	Payload upsertPayload `json:"payload"`
}

type upsertRequest struct {
	Points []upsertPoint `json:"points"`
}

type genericStatusResponse struct {
	Status string `json:"status"`
	Result struct {
		Status string `json:"status"`
	} `json:"result"`
}

// Upsert writes points to the collection. An empty input returns success
// without making a network call.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	req := upsertRequest{Points: make([]upsertPoint, 0, len(points))}
	for _, p := range points {
		up := upsertPoint{
			ID:     PointID(p.ChunkID),
			Vector: upsertVector{Dense: p.Vector},
			Payload: upsertPayload{
				ChunkID:     p.ChunkID,
				SessionID:   p.SessionID,
				ProjectPath: p.ProjectPath,
				Timestamp:   p.Timestamp,
				Content:     p.Content,
				Context:     p.Context,
			},
		}
		if len(p.SparseTerms) > 0 {
			sv := &sparseVectorWire{}
			for idx, val := range p.SparseTerms {
				sv.Indices = append(sv.Indices, idx)
				sv.Values = append(sv.Values, val)
			}
			up.Vector.Sparse = sv
		}
		req.Points = append(req.Points, up)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.cfg.BaseURL, c.cfg.Collection)
	var resp genericStatusResponse
	if err := c.doJSON(ctx, http.MethodPut, url, req, &resp); err != nil {
		return fmt.Errorf("vectorstore: upsert: %w", err)
	}
	if resp.Status != "ok" && resp.Result.Status != "completed" {
		return fmt.Errorf("vectorstore: upsert: unexpected status %q/%q", resp.Status, resp.Result.Status)
	}
	return nil
}

type scrollRequestBody struct {
	Limit      int                    `json:"limit"`
	WithPayload map[string][]string   `json:"with_payload"`
	WithVector bool                   `json:"with_vector"`
	Offset     json.RawMessage        `json:"offset,omitempty"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			Payload struct {
				ChunkID string `json:"chunk_id"`
			} `json:"payload"`
		} `json:"points"`
		NextPageOffset json.RawMessage `json:"next_page_offset"`
	} `json:"result"`
}

const scrollPageSize = 1000

// ScrollChunkIDs paginates through the whole collection and returns every
// stored chunk id, vectors excluded. Page size is fixed at 1000; iteration
// continues while the response carries a non-null next-page offset.
func (c *Client) ScrollChunkIDs(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.cfg.BaseURL, c.cfg.Collection)

	var ids []string
	var offset json.RawMessage
	for {
		body := scrollRequestBody{
			Limit:       scrollPageSize,
			WithPayload: map[string][]string{"include": {"chunk_id"}},
			WithVector:  false,
			Offset:      offset,
		}
		var resp scrollResponse
		if err := c.doJSON(ctx, http.MethodPost, url, body, &resp); err != nil {
			return nil, fmt.Errorf("vectorstore: scroll: %w", err)
		}
		for _, pt := range resp.Result.Points {
			ids = append(ids, pt.Payload.ChunkID)
		}
		if len(resp.Result.NextPageOffset) == 0 || string(resp.Result.NextPageOffset) == "null" {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	return ids, nil
}

// SearchHit is one nearest-neighbour search result.
type SearchHit struct {
	ChunkID     string
	SessionID   string
	ProjectPath string
	Timestamp   string
	Content     string
	Context     string
	Score       float64
}

// SearchQuery parameterizes a nearest-neighbour search.
type SearchQuery struct {
	Vector         []float32
	SparseTerms    map[uint32]float32 // optional hybrid term vector; nil disables it
	Limit          int
	ProjectFilter  string // empty means no filter
	ScoreThreshold *float64
}

type searchFilter struct {
	Must []searchCondition `json:"must"`
}

type searchCondition struct {
	Key   string      `json:"key"`
	Match matchClause `json:"match"`
}

type matchClause struct {
	Value string `json:"value"`
}

type searchRequestBody struct {
	Vector         searchVector      `json:"vector"`
	SparseVector   *sparseVectorWire `json:"sparse_vector,omitempty"`
	Limit          int               `json:"limit"`
	WithPayload    bool              `json:"with_payload"`
	Filter         *searchFilter     `json:"filter,omitempty"`
	ScoreThreshold *float64          `json:"score_threshold,omitempty"`
}

type searchVector struct {
	Name   string    `json:"name"`
	Vector []float32 `json:"vector"`
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			ChunkID     string `json:"chunk_id"`
			SessionID   string `json:"session_id"`
			ProjectPath string `json:"project_path"`
			Timestamp   string `json:"timestamp"`
			Content     string `json:"content"`
			Context     string `json:"context"`
		} `json:"payload"`
	} `json:"result"`
}

// Search runs a nearest-neighbour query against the named dense vector.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	url := fmt.Sprintf("%s/collections/%s/points/search", c.cfg.BaseURL, c.cfg.Collection)

	body := searchRequestBody{
		Vector:         searchVector{Name: "dense", Vector: q.Vector},
		Limit:          q.Limit,
		WithPayload:    true,
		ScoreThreshold: q.ScoreThreshold,
	}
	if q.ProjectFilter != "" {
		body.Filter = &searchFilter{Must: []searchCondition{
			{Key: "project_path", Match: matchClause{Value: q.ProjectFilter}},
		}}
	}
	if len(q.SparseTerms) > 0 {
		sv := &sparseVectorWire{}
		for idx, val := range q.SparseTerms {
			sv.Indices = append(sv.Indices, idx)
			sv.Values = append(sv.Values, val)
		}
		body.SparseVector = sv
	}

	var resp searchResponse
	if err := c.doJSON(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}

	hits := make([]SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, SearchHit{
			ChunkID:     r.Payload.ChunkID,
			SessionID:   r.Payload.SessionID,
			ProjectPath: r.Payload.ProjectPath,
			Timestamp:   r.Payload.Timestamp,
			Content:     r.Payload.Content,
			Context:     r.Payload.Context,
			Score:       r.Score,
		})
	}
	return hits, nil
}

// doJSON issues one JSON request and decodes the JSON response. Transport
// failures, non-2xx responses, and malformed bodies each produce a
// distinct, identifiable error; there is no retry at this layer.
func (c *Client) doJSON(ctx context.Context, method, url string, reqBody, respBody any) error {
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("non-2xx status %s: %s", resp.Status, truncate(raw, 200))
	}

	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("malformed response body %q: %w", truncate(raw, 200), err)
	}
	return nil
}

func truncate(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
