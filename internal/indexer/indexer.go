// Package indexer is the full discover -> parse -> diff -> plan -> embed ->
// upsert -> report pipeline. Re-running it converges because the diff step
// against the vector store drops chunks already indexed.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"steward/internal/chunker"
	"steward/internal/embedclient"
	"steward/internal/embedpool"
	"steward/internal/sparsevec"
	"steward/internal/telemetry"
	"steward/internal/transcript"
	"steward/internal/turns"
	"steward/internal/vectorstore"
)

// FileInfo is one discovered transcript file.
type FileInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Plan is the result of discover+parse+diff, before any network write.
type Plan struct {
	FilesSeen      int
	ChunksParsed   int
	AlreadyIndexed int
	ToIndex        []chunker.Chunk
}

// Report is the final outcome of a full or dry run.
type Report struct {
	Plan     Plan
	Embedded int
	Written  int
	Errors   []ChunkError
}

// ChunkError describes one chunk that failed to embed or upsert.
type ChunkError struct {
	ChunkID        string
	SessionID      string
	ProjectPath    string
	Error          string
	ContentLength  int
	ContentPreview string
}

// Options configures one indexer run.
type Options struct {
	TranscriptsRoot string
	ProjectFilter   string // empty means no filter
	DryRun          bool
	BatchSize       int // default 50
	Parallel        int // default 4, forwarded to the embed pool
}

// Indexer wires together the pipeline's collaborators.
type Indexer struct {
	Embed   *embedclient.Client
	Vector  *vectorstore.Client
	Metrics *telemetry.Metrics
}

// New constructs an Indexer. Metrics defaults to a fresh instance reading
// the global MeterProvider, a no-op until a caller installs a real one.
func New(embed *embedclient.Client, vector *vectorstore.Client) *Indexer {
	return &Indexer{Embed: embed, Vector: vector, Metrics: telemetry.New()}
}

// Discover walks root recursively and collects every *.jsonl file,
// optionally filtered to those whose path contains projectFilter literally
// or with "/" replaced by "-" (accommodating flattened directory-name
// encodings of project paths).
func Discover(root, projectFilter string) ([]FileInfo, error) {
	var out []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		if projectFilter != "" && !matchesProject(path, projectFilter) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, FileInfo{Path: path, ModTime: info.ModTime(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: discover: %w", err)
	}
	return out, nil
}

func matchesProject(path, projectFilter string) bool {
	flattened := strings.ReplaceAll(projectFilter, "/", "-")
	return strings.Contains(path, projectFilter) || strings.Contains(path, flattened)
}

// Parse streams every discovered file through the transcript reader, pairs
// messages into turns, and chunks each turn. A file that fails to open is
// silently skipped, matching the orchestrator's resilience contract.
func Parse(files []FileInfo) []chunker.Chunk {
	var chunks []chunker.Chunk
	for _, f := range files {
		reader, err := transcript.Open(f.Path)
		if err != nil {
			log.Debug().Err(err).Str("path", f.Path).Msg("skipping unreadable transcript file")
			continue
		}
		var messages []transcript.Message
		for {
			msg, ok := reader.Next()
			if !ok {
				break
			}
			messages = append(messages, msg)
		}
		reader.Close()

		for _, turn := range turns.Pair(messages) {
			chunks = append(chunks, chunker.ChunkTurn(turn)...)
		}
	}
	return chunks
}

// Diff scrolls all chunk ids currently in the store and drops from parsed
// any chunk already present. The remainder is the work set.
func Diff(ctx context.Context, vector *vectorstore.Client, parsed []chunker.Chunk) (Plan, error) {
	existing, err := vector.ScrollChunkIDs(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("indexer: diff: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}

	plan := Plan{ChunksParsed: len(parsed)}
	for _, c := range parsed {
		if present[c.ID.String()] {
			plan.AlreadyIndexed++
			continue
		}
		plan.ToIndex = append(plan.ToIndex, c)
	}
	return plan, nil
}

// Run executes the full pipeline according to opts and returns a final
// report. With opts.DryRun set, it stops after planning.
func (ix *Indexer) Run(ctx context.Context, opts Options) (Report, error) {
	started := time.Now()
	defer func() {
		ix.Metrics.ObserveHistogram(ctx, telemetry.IndexerDurationMs, float64(time.Since(started).Milliseconds()), nil)
	}()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	workers := opts.Parallel
	if workers <= 0 {
		workers = 4
	}

	files, err := Discover(opts.TranscriptsRoot, opts.ProjectFilter)
	if err != nil {
		return Report{}, err
	}

	parsed := Parse(files)

	plan, err := Diff(ctx, ix.Vector, parsed)
	if err != nil {
		return Report{}, err
	}
	plan.FilesSeen = len(files)

	report := Report{Plan: plan}
	if opts.DryRun {
		return report, nil
	}

	pool := embedpool.New(ix.Embed, workers)

	for start := 0; start < len(plan.ToIndex); start += batchSize {
		end := start + batchSize
		if end > len(plan.ToIndex) {
			end = len(plan.ToIndex)
		}
		batch := plan.ToIndex[start:end]

		result := pool.Run(ctx, batch)
		for _, f := range result.Failed {
			report.Errors = append(report.Errors, chunkError(f.Chunk, f.Err))
		}
		if len(result.Failed) > 0 {
			ix.Metrics.AddCounter(ctx, telemetry.ChunksFailed, int64(len(result.Failed)), nil)
		}
		report.Embedded += len(result.Succeeded)
		ix.Metrics.AddCounter(ctx, telemetry.ChunksEmbedded, int64(len(result.Succeeded)), nil)

		if len(result.Succeeded) == 0 {
			continue
		}

		points := make([]vectorstore.Point, 0, len(result.Succeeded))
		for _, e := range result.Succeeded {
			p := vectorstore.Point{
				ChunkID:     e.Chunk.ID.String(),
				SessionID:   e.Chunk.SessionID.String(),
				ProjectPath: e.Chunk.Cwd,
				Timestamp:   e.Chunk.Timestamp,
				Content:     e.Chunk.Text,
				Vector:      e.Vector,
				SparseTerms: sparseTermMap(e.Chunk.Text),
			}
			points = append(points, p)
		}

		if err := ix.Vector.Upsert(ctx, points); err != nil {
			// Upsert failure demotes the whole batch's successes to
			// failures carrying the upsert error, per spec §4.13 step 5.
			for _, e := range result.Succeeded {
				report.Errors = append(report.Errors, chunkError(e.Chunk, err))
			}
			report.Embedded -= len(result.Succeeded)
			continue
		}
		report.Written += len(points)
		ix.Metrics.IncCounter(ctx, telemetry.BatchesUpserted, nil)
	}

	return report, nil
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

func chunkError(c chunker.Chunk, err error) ChunkError {
	preview := c.Text
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return ChunkError{
		ChunkID:        c.ID.String(),
		SessionID:      c.SessionID.String(),
		ProjectPath:    c.Cwd,
		Error:          err.Error(),
		ContentLength:  len(c.Text),
		ContentPreview: preview,
	}
}

// WriteErrorsJSONL writes report errors as newline-delimited JSON to path,
// one object per line with fields chunk_id, session_id, project_path,
// error, content_length, content_preview.
func WriteErrorsJSONL(path string, errs []ChunkError) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create error file: %w", err)
	}
	defer f.Close()

	for _, e := range errs {
		line := fmt.Sprintf(
			`{"chunk_id":%q,"session_id":%q,"project_path":%q,"error":%q,"content_length":%d,"content_preview":%q}`+"\n",
			e.ChunkID, e.SessionID, e.ProjectPath, e.Error, e.ContentLength, e.ContentPreview,
		)
		if _, err := f.WriteString(line); err != nil {
			return fmt.Errorf("indexer: write error file: %w", err)
		}
	}
	return nil
}
