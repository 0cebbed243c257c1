package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"steward/internal/config"
	"steward/internal/embedclient"
	"steward/internal/finder"
	"steward/internal/sessionstore"
	"steward/internal/vectorstore"
)

func main() {
	log.SetFlags(0)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "maximum number of results")
	project := fs.String("project", "", "restrict results to this project path")
	jsonOut := fs.Bool("json", false, "print results as JSON")
	threshold := fs.Float64("threshold", -1, "minimum score to include a result (unset means no filter)")
	hybrid := fs.Bool("hybrid", false, "include a sparse term vector alongside the dense query embedding")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		log.Println("usage: search [flags] <query>")
		return 1
	}
	query := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}

	embed := embedclient.New(embedclient.Config{
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})
	vector := vectorstore.New(vectorstore.Config{
		BaseURL:    cfg.VectorStore.BaseURL,
		Collection: cfg.VectorStore.Collection,
		Dimension:  cfg.VectorStore.Dimension,
		Metric:     cfg.VectorStore.Metric,
	})
	sessions, err := sessionstore.Open(cfg.SessionDBPath)
	if err != nil {
		log.Printf("open session store: %v", err)
		return 1
	}
	defer sessions.Close()

	f := finder.New(embed, vector, sessions)

	q := finder.Query{
		Text:          query,
		Limit:         *limit,
		ProjectFilter: *project,
		Hybrid:        *hybrid,
	}
	if *threshold >= 0 {
		t := *threshold
		q.ScoreThreshold = &t
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := f.Search(ctx, q)
	if err != nil {
		log.Printf("search failed: %v", err)
		return 1
	}

	if *jsonOut {
		printJSON(results)
		return 0
	}
	printText(results)
	return 0
}

func printJSON(results []finder.Result) {
	type liveness struct {
		Running      bool   `json:"running"`
		TmuxLocation string `json:"tmux_location,omitempty"`
	}
	type row struct {
		ChunkID     string   `json:"chunk_id"`
		SessionID   string   `json:"session_id"`
		ProjectPath string   `json:"project_path"`
		Timestamp   string   `json:"timestamp"`
		Content     string   `json:"content"`
		Score       float64  `json:"score"`
		Liveness    liveness `json:"liveness"`
	}
	rows := make([]row, 0, len(results))
	for _, r := range results {
		rows = append(rows, row{
			ChunkID: r.ChunkID, SessionID: r.SessionID, ProjectPath: r.ProjectPath,
			Timestamp: r.Timestamp, Content: r.Content, Score: r.Score,
			Liveness: liveness{Running: r.Liveness.Running, TmuxLocation: r.Liveness.TmuxLocation},
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rows)
}

func printText(results []finder.Result) {
	for _, r := range results {
		status := "not running"
		if r.Liveness.Running {
			status = fmt.Sprintf("running at %s", r.Liveness.TmuxLocation)
			if r.Liveness.State.NeedsAttention {
				status += fmt.Sprintf(" (needs attention: %s)", r.Liveness.State.Reason)
			}
		}
		fmt.Printf("[%.3f] %s (%s) — %s\n", r.Score, r.ProjectPath, status, truncate(r.Content, 120))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
