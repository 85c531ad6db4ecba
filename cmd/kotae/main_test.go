package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"what is kotae", "--session", "abc"},
			expected: []string{"--session", "abc", "what is kotae"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"--session", "abc", "what is kotae"},
			expected: []string{"--session", "abc", "what is kotae"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"what is kotae"},
			expected: []string{"what is kotae"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"notes.txt", "--strategy", "fixed"},
			expected: []string{"--strategy", "fixed", "notes.txt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"kotae"}, "kotae"},
		{"multiple words", []string{"refund", "policy"}, "refund policy"},
		{"single quoted phrase", []string{"refund policy"}, "refund policy"},
		{"surrounding space trimmed", []string{" ", "hello", " "}, "hello"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.expected {
				t.Errorf("buildQuery() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, used, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if used != path || cfg.Server.Port != 9191 {
		t.Errorf("loadConfig = port %d from %s", cfg.Server.Port, used)
	}
}

func TestLoadConfig_defaultPathFallsBackToWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	cfg, used, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || filepath.Base(used) != "config.yaml" || used == defaultConfigPath {
		t.Errorf("expected working-directory config, got %s (debug=%v)", used, cfg.Debug)
	}
}

func TestInitializeComponents_mockPipeline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./kotae.db"
  vector_index_path: "./vectors.gob"
embedding:
  provider: mock
  dimensions: 32
llm:
  api_key_env: KOTAE_TEST_UNSET_KEY
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KOTAE_TEST_UNSET_KEY", "")
	cfg, _, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.LLM.Model() != "" {
		t.Errorf("missing API key should leave the LLM unavailable, got model %q", c.LLM.Model())
	}
	resp, err := c.Indexer.Ingest(ctx, ingestRequest("a.txt", []byte("Kotae stores documents. It answers questions."), "", 0))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", resp.Chunks)
	}
	n, err := c.VectorIndex.Count(ctx, cfg.Vector.Collection)
	if err != nil || n != 1 {
		t.Errorf("vector count = %d, %v", n, err)
	}
}
