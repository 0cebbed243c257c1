// Package embedpool runs bounded-parallel embedding jobs, grounded on the
// teacher's errgroup.SetLimit fan-out in internal/tools/web/fetch_tool.go.
package embedpool

import (
	"context"

	"golang.org/x/sync/errgroup"

	"steward/internal/chunker"
	"steward/internal/embedclient"
)

// Embedded pairs a chunk with its computed vector.
type Embedded struct {
	Chunk  chunker.Chunk
	Vector []float32
}

// Failure pairs a chunk with the error that prevented it from embedding.
type Failure struct {
	Chunk chunker.Chunk
	Err   error
}

// Result partitions a pool run into successes and failures. Each list keeps
// the chunks in their input order, whatever order the requests completed in.
type Result struct {
	Succeeded []Embedded
	Failed    []Failure
}

// Pool embeds a finite job list with up to Workers in-flight HTTP requests
// at any instant. A plain (non-WithContext) errgroup.Group is used
// deliberately: one job's failure must not cancel its peers, so nothing
// here derives a cancellable context from another job's error.
type Pool struct {
	Client  *embedclient.Client
	Workers int
}

// New constructs a Pool. workers <= 0 falls back to the spec default of 4.
func New(client *embedclient.Client, workers int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{Client: client, Workers: workers}
}

// outcome holds one job's result at its input index, mirroring the
// teacher's pre-allocated results slice so concurrent writers never need a
// shared mutex: each goroutine only ever touches its own index.
type outcome struct {
	embedded Embedded
	failure  Failure
	ok       bool
}

// Run embeds every chunk in chunks, bounded at Workers concurrent requests.
// It always returns a Result; the only error path is per-chunk, captured in
// Result.Failed.
func (p *Pool) Run(ctx context.Context, chunks []chunker.Chunk) Result {
	outcomes := make([]outcome, len(chunks))

	var g errgroup.Group
	g.SetLimit(p.Workers)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			vec, err := p.Client.Embed(ctx, c.Text)
			if err != nil {
				outcomes[i] = outcome{failure: Failure{Chunk: c, Err: err}}
				return nil
			}
			outcomes[i] = outcome{embedded: Embedded{Chunk: c, Vector: vec}, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	var result Result
	for _, o := range outcomes {
		if o.ok {
			result.Succeeded = append(result.Succeeded, o.embedded)
		} else {
			result.Failed = append(result.Failed, o.failure)
		}
	}
	return result
}
