package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", configFileName, err)
	}
	return path
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, ok, err := findConfig(nested)
	if err != nil {
		t.Fatalf("findConfig error: %v", err)
	}
	if !ok || got != want {
		t.Fatalf("findConfig = %q, %v; want %q, true", got, ok, want)
	}
}

func TestLoadConfigMissingImplicitFile(t *testing.T) {
	cfg, err := loadConfig("", t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected no config, got %+v", cfg)
	}
}

func TestLoadConfigResolvesRelativePaths(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, `# test config
[input]
path = "traces/run.txt"

[output]
path = "-"
type = "dot"
dot_path = "/abs/graph.dot"

[filters]
skip_file = "skip.txt"
skip = ["ntdll"]
prune_skipped = true
`)

	cfg, err := loadConfig(path, "")
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if got, want := cfg.Config.Input.Path, filepath.Join(root, "traces", "run.txt"); got != want {
		t.Fatalf("input path = %q, want %q", got, want)
	}
	if cfg.Config.Output.Path != "-" {
		t.Fatalf("stdout path rewritten to %q", cfg.Config.Output.Path)
	}
	if cfg.Config.Output.DotPath != "/abs/graph.dot" {
		t.Fatalf("absolute path rewritten to %q", cfg.Config.Output.DotPath)
	}
	if got, want := cfg.Config.Filters.SkipFile, filepath.Join(root, "skip.txt"); got != want {
		t.Fatalf("skip file = %q, want %q", got, want)
	}
	if !cfg.IsDefined("filters", "prune_skipped") {
		t.Fatalf("prune_skipped should be defined")
	}
	if cfg.IsDefined("cache", "enabled") {
		t.Fatalf("cache.enabled should not be defined")
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[output]\nformat = \"dot\"\n")
	_, err := loadConfig(path, "")
	if err == nil || !strings.Contains(err.Error(), "unknown key output.format") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[input\n")
	if _, err := loadConfig(path, ""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadedConfigNilIsDefined(t *testing.T) {
	var cfg *loadedConfig
	if cfg.IsDefined("cache", "enabled") {
		t.Fatalf("nil config defines nothing")
	}
}
