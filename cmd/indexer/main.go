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
	"steward/internal/indexer"
	"steward/internal/vectorstore"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) > 1 && os.Args[1] == "doctor" {
		os.Exit(runDoctor(os.Args[2:]))
	}
	os.Exit(runIndex(os.Args[1:]))
}

func runIndex(args []string) int {
	fs := flag.NewFlagSet("indexer", flag.ContinueOnError)
	parallel := fs.Int("parallel", 4, "number of concurrent embedding requests")
	project := fs.String("project", "", "restrict indexing to transcripts matching this project path")
	dryRun := fs.Bool("dry-run", false, "plan only, write nothing")
	batch := fs.Int("batch", 50, "chunks per embed+upsert batch")
	errorsFile := fs.String("errors-file", "", "write a JSONL error report to this path")
	jsonOut := fs.Bool("json", false, "emit one JSON line per stage transition instead of plain text")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}
	emit(*jsonOut, "discover", "starting index run")

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

	ix := indexer.New(embed, vector)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	report, err := ix.Run(ctx, indexer.Options{
		TranscriptsRoot: cfg.TranscriptsRoot,
		ProjectFilter:   *project,
		DryRun:          *dryRun,
		BatchSize:       *batch,
		Parallel:        *parallel,
	})
	if err != nil {
		log.Printf("index run failed: %v", err)
		return 1
	}

	emit(*jsonOut, "plan", fmt.Sprintf("files seen %d, chunks parsed %d, already indexed %d, new chunks %d",
		report.Plan.FilesSeen, report.Plan.ChunksParsed, report.Plan.AlreadyIndexed, len(report.Plan.ToIndex)))

	if !*dryRun {
		emit(*jsonOut, "done", fmt.Sprintf("embedded %d, written %d, errors %d",
			report.Embedded, report.Written, len(report.Errors)))
	}

	if *errorsFile != "" && len(report.Errors) > 0 {
		if err := indexer.WriteErrorsJSONL(*errorsFile, report.Errors); err != nil {
			log.Printf("write errors file: %v", err)
			return 1
		}
	}

	// A completed run with per-chunk errors still exits 0; only option and
	// pipeline-level failures are a non-zero exit.
	return 0
}

func emit(jsonOut bool, stage, message string) {
	if !jsonOut {
		log.Println(message)
		return
	}
	line, _ := json.Marshal(struct {
		Stage   string `json:"stage"`
		Message string `json:"message"`
	}{Stage: stage, Message: message})
	fmt.Println(string(line))
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}

	ok := true

	if info, err := os.Stat(cfg.TranscriptsRoot); err != nil || !info.IsDir() {
		log.Printf("transcripts root: FAIL (%s)", cfg.TranscriptsRoot)
		ok = false
	} else {
		log.Printf("transcripts root: OK (%s)", cfg.TranscriptsRoot)
	}

	embed := embedclient.New(embedclient.Config{
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := embed.Ping(ctx); err != nil {
		log.Printf("embedding backend: FAIL (%v)", err)
		ok = false
	} else {
		log.Printf("embedding backend: OK (%s)", cfg.Embedding.BaseURL)
	}

	vector := vectorstore.New(vectorstore.Config{
		BaseURL:    cfg.VectorStore.BaseURL,
		Collection: cfg.VectorStore.Collection,
		Dimension:  cfg.VectorStore.Dimension,
		Metric:     cfg.VectorStore.Metric,
	})
	if _, err := vector.ScrollChunkIDs(ctx); err != nil {
		log.Printf("vector store collection: FAIL (%v)", err)
		ok = false
	} else {
		log.Printf("vector store collection: OK (%s)", cfg.VectorStore.Collection)
	}

	if !ok {
		return 1
	}
	return 0
}
