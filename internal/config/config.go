// Package config loads steward's runtime configuration: environment
// variables first (via godotenv.Overload, same as the teacher), an optional
// YAML file for values awkward to express as env vars, then defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Embedding holds the HTTP embedding backend's connection details.
type Embedding struct {
	BaseURL        string `yaml:"baseURL"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// VectorStore holds the REST vector database's connection details.
type VectorStore struct {
	BaseURL    string `yaml:"baseURL"`
	Collection string `yaml:"collection"`
	Dimension  int    `yaml:"dimension"`
	Metric     string `yaml:"metric"`
}

// Config is steward's full runtime configuration.
type Config struct {
	TranscriptsRoot string      `yaml:"transcriptsRoot"`
	SessionDBPath   string      `yaml:"sessionDBPath"`
	LogLevel        string      `yaml:"logLevel"`
	HookLogPath     string      `yaml:"hookLogPath"`
	PoolSize        int         `yaml:"poolSize"`
	BatchSize       int         `yaml:"batchSize"`
	Embedding       Embedding   `yaml:"embedding"`
	VectorStore     VectorStore `yaml:"vectorStore"`
}

// Load reads configuration from the environment (optionally a .env file via
// godotenv.Overload, matching the teacher's loader.go), then fills in
// anything still unset from an optional YAML file, then applies defaults.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}
	cfg.TranscriptsRoot = strings.TrimSpace(os.Getenv("STEWARD_TRANSCRIPTS_ROOT"))
	cfg.SessionDBPath = strings.TrimSpace(os.Getenv("STEWARD_DB"))
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.HookLogPath = strings.TrimSpace(os.Getenv("STEWARD_HOOK_LOG"))

	if v := strings.TrimSpace(os.Getenv("STEWARD_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("STEWARD_BATCH_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}

	cfg.Embedding.BaseURL = strings.TrimSpace(os.Getenv("EMBED_BASE_URL"))
	cfg.Embedding.Model = strings.TrimSpace(os.Getenv("EMBED_MODEL"))
	if v := strings.TrimSpace(os.Getenv("EMBED_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.TimeoutSeconds = n
		}
	}

	cfg.VectorStore.BaseURL = strings.TrimSpace(os.Getenv("VECTOR_BASE_URL"))
	cfg.VectorStore.Collection = strings.TrimSpace(os.Getenv("VECTOR_COLLECTION"))
	if v := strings.TrimSpace(os.Getenv("VECTOR_DIMENSION")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VectorStore.Dimension = n
		}
	}
	cfg.VectorStore.Metric = strings.TrimSpace(os.Getenv("VECTOR_METRIC"))

	if err := mergeYAML(&cfg); err != nil {
		return Config{}, err
	}

	applyDefaults(&cfg)

	return cfg, nil
}

// mergeYAML fills in still-empty fields from an optional YAML file,
// located via STEWARD_CONFIG or a config.yaml/config.yml in the working
// directory. Absent is fine; this file is optional. Top-level fields are
// merged one by one. The embedding and vectorStore blocks are not: when the
// environment leaves a block's baseURL empty, the whole block is taken from
// the file, and any other environment values for that block are discarded.
func mergeYAML(cfg *Config) error {
	var paths []string
	if p := strings.TrimSpace(os.Getenv("STEWARD_CONFIG")); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "config.yaml", "config.yml")

	var data []byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			break
		}
		if os.IsNotExist(err) {
			continue
		}
		return fmt.Errorf("config: read %s: %w", p, err)
	}
	if len(data) == 0 {
		return nil
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}

	if cfg.TranscriptsRoot == "" {
		cfg.TranscriptsRoot = fromFile.TranscriptsRoot
	}
	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = fromFile.SessionDBPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = fromFile.LogLevel
	}
	if cfg.HookLogPath == "" {
		cfg.HookLogPath = fromFile.HookLogPath
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = fromFile.PoolSize
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = fromFile.BatchSize
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding = fromFile.Embedding
	}
	if cfg.VectorStore.BaseURL == "" {
		cfg.VectorStore = fromFile.VectorStore
	}
	return nil
}

func applyDefaults(cfg *Config) {
	home, _ := os.UserHomeDir()
	stewardDir := filepath.Join(home, ".steward")

	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = filepath.Join(stewardDir, "sessions.db")
	}
	if cfg.HookLogPath == "" {
		cfg.HookLogPath = filepath.Join(stewardDir, "hook.log")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Embedding.TimeoutSeconds <= 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.VectorStore.Metric == "" {
		cfg.VectorStore.Metric = "cosine"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "steward_chunks"
	}
}

// EnsureStewardDir creates $HOME/.steward (or STEWARD_DB's/STEWARD_HOOK_LOG's
// parent dirs when overridden) so the session database and hook log can be
// opened on first run.
func EnsureStewardDir(cfg Config) error {
	for _, p := range []string{cfg.SessionDBPath, cfg.HookLogPath} {
		dir := filepath.Dir(p)
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return nil
}
