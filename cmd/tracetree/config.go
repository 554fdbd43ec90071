package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const configFileName = "tracetree.toml"

// fileConfig mirrors tracetree.toml. Relative paths are resolved against the
// directory holding the file.
type fileConfig struct {
	Input   inputConfig   `toml:"input"`
	Output  outputConfig  `toml:"output"`
	Filters filtersConfig `toml:"filters"`
	Cache   cacheConfig   `toml:"cache"`
}

type inputConfig struct {
	Path string `toml:"path"`
}

type outputConfig struct {
	Path     string `toml:"path"`
	Type     string `toml:"type"`
	TextPath string `toml:"text_path"`
	DotPath  string `toml:"dot_path"`
}

type filtersConfig struct {
	SkipFile     string   `toml:"skip_file"`
	ColumnsFile  string   `toml:"columns_file"`
	Skip         []string `toml:"skip"`
	Columns      []string `toml:"columns"`
	PruneSkipped bool     `toml:"prune_skipped"`
}

type cacheConfig struct {
	Enabled bool `toml:"enabled"`
}

// loadedConfig is a parsed configuration file and what it defined.
type loadedConfig struct {
	Path   string
	Config fileConfig
	meta   toml.MetaData
}

// IsDefined reports whether the file set the key, e.g. ("cache", "enabled").
func (c *loadedConfig) IsDefined(key ...string) bool {
	if c == nil {
		return false
	}
	return c.meta.IsDefined(key...)
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfig reads the file at explicit, or the nearest tracetree.toml above
// startDir when explicit is empty. A missing implicit file is not an error.
func loadConfig(explicit, startDir string) (*loadedConfig, error) {
	path := explicit
	if path == "" {
		found, ok, err := findConfig(startDir)
		if err != nil || !ok {
			return nil, err
		}
		path = found
	}
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	base := filepath.Dir(path)
	cfg.Input.Path = resolvePath(base, cfg.Input.Path)
	cfg.Output.Path = resolvePath(base, cfg.Output.Path)
	cfg.Output.TextPath = resolvePath(base, cfg.Output.TextPath)
	cfg.Output.DotPath = resolvePath(base, cfg.Output.DotPath)
	cfg.Filters.SkipFile = resolvePath(base, cfg.Filters.SkipFile)
	cfg.Filters.ColumnsFile = resolvePath(base, cfg.Filters.ColumnsFile)
	return &loadedConfig{Path: path, Config: cfg, meta: meta}, nil
}

func resolvePath(base, p string) string {
	if p == "" || p == "-" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, filepath.FromSlash(p))
}
