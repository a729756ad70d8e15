package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings. Callers either construct a Config in
// Go code, or place a YAML file on disk and call LoadConfig. Environment
// variables override file values for secrets.
type Config struct {
	// DataDir is the root directory for all durable state
	// (default "data").
	DataDir string `yaml:"data_dir"`

	// HistoryDir is the directory for session history logs. If empty,
	// DataDir/history is used.
	HistoryDir string `yaml:"history_dir"`

	// KnowledgePath is the SQLite file backing the knowledge base.
	// If empty, DataDir/knowledge.db is used.
	KnowledgePath string `yaml:"knowledge_path"`

	// ContextPath is the bolt file archiving each session's last
	// retrieval context. If empty, DataDir/context.db is used.
	ContextPath string `yaml:"context_path"`

	// ListenAddr is the HTTP listen address (default ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// Model names the generation model (default gemini-2.0-flash).
	Model string `yaml:"model"`

	// APIKey authenticates against the model API. The GEMINI_API_KEY
	// environment variable takes precedence over this field.
	APIKey string `yaml:"api_key"`

	// RetrievalK is how many knowledge chunks each generation retrieves
	// (default 5).
	RetrievalK int `yaml:"retrieval_k"`

	// DedupeOnLoad drops repeated queries when reloading history files.
	// Off by default so every recorded turn survives a restart.
	DedupeOnLoad bool `yaml:"dedupe_on_load"`

	// ThinkingEnabled turns on progress pacing between pipeline stages.
	ThinkingEnabled bool `yaml:"thinking_enabled"`
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.HistoryDir == "" {
		c.HistoryDir = filepath.Join(c.DataDir, "history")
	}
	if c.KnowledgePath == "" {
		c.KnowledgePath = filepath.Join(c.DataDir, "knowledge.db")
	}
	if c.ContextPath == "" {
		c.ContextPath = filepath.Join(c.DataDir, "context.db")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.RetrievalK == 0 {
		c.RetrievalK = DefaultRetrievalK
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.APIKey = key
	}
}

// SetDataDir points the config at a different data root and recomputes the
// derived paths that were not set explicitly.
func (c *Config) SetDataDir(dir string) {
	if dir == "" || dir == c.DataDir {
		return
	}
	oldHistory := filepath.Join(c.DataDir, "history")
	oldKnowledge := filepath.Join(c.DataDir, "knowledge.db")
	oldContext := filepath.Join(c.DataDir, "context.db")
	c.DataDir = dir
	if c.HistoryDir == oldHistory || c.HistoryDir == "" {
		c.HistoryDir = filepath.Join(dir, "history")
	}
	if c.KnowledgePath == oldKnowledge || c.KnowledgePath == "" {
		c.KnowledgePath = filepath.Join(dir, "knowledge.db")
	}
	if c.ContextPath == oldContext || c.ContextPath == "" {
		c.ContextPath = filepath.Join(dir, "context.db")
	}
}

// DefaultConfig returns a Config with all defaults applied and no file read.
func DefaultConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML configuration file and returns a Config with
// defaults and environment overrides applied. A missing file is not an
// error: the defaults are returned.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}
