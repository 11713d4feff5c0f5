// Package config loads linkmap.yaml, the per-repository settings file.
//
// The file is optional. Without it linkmap runs on DefaultConfig rooted at
// the working directory; with it, relative paths are resolved against the
// directory holding the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/discovery"
	"github.com/HendryAvila/linkmap/internal/journal"
	"github.com/HendryAvila/linkmap/internal/mapping"
)

// FileName is the configuration file searched for.
const FileName = "linkmap.yaml"

// DefaultExclude hides archived material, dot-directories (including the
// .linkmap cache directory) and vendored node modules.
var DefaultExclude = []string{"*archive*", ".*", "node_modules"}

// Config is the parsed linkmap.yaml.
type Config struct {
	// RepoRoot is the directory physical paths are relative to.
	RepoRoot string `yaml:"repo_root,omitempty"`
	// CacheFile is the JSON mapping cache.
	CacheFile string `yaml:"cache_file,omitempty"`
	// JournalDir holds journal.db. Empty disables the journal.
	JournalDir     string             `yaml:"journal_dir,omitempty"`
	JournalMaxRuns int                `yaml:"journal_max_runs,omitempty"`
	Roots          []mapping.RootSpec `yaml:"roots"`
	// Exclude applies to every root that has no exclude list of its own.
	Exclude    []string   `yaml:"exclude,omitempty"`
	Derivation Derivation `yaml:"derivation,omitempty"`
	LogLevel   string     `yaml:"log_level,omitempty"`
}

// Derivation configures logical id derivation.
type Derivation struct {
	// StripPatterns replace discovery.DefaultStripPatterns when set.
	StripPatterns []string `yaml:"strip_patterns,omitempty"`
}

// DefaultConfig returns the built-in settings. Paths are relative until
// Resolve is called.
func DefaultConfig() Config {
	return Config{
		RepoRoot:       ".",
		CacheFile:      filepath.Join(".linkmap", "mappings.json"),
		JournalDir:     ".linkmap",
		JournalMaxRuns: journal.DefaultConfig("").MaxRuns,
		Roots: []mapping.RootSpec{
			{Path: "standards", DocumentType: address.TypeStandard},
			{Path: "tasks", DocumentType: address.TypeTask},
			{Path: "incidents", DocumentType: address.TypeIncident},
			{Path: ".", DocumentType: address.TypeDirectory, MaxDepth: 1},
		},
		Exclude:  append([]string(nil), DefaultExclude...),
		LogLevel: "info",
	}
}

// Find walks up from dir looking for linkmap.yaml and returns its path.
func Find(dir string) (string, bool) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(current, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Load reads the file at p over DefaultConfig and resolves its relative
// paths against the file's directory. Unknown keys are rejected.
func Load(p string) (Config, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", p, err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse %s: %w", p, err)
	}

	dir, err := filepath.Abs(filepath.Dir(p))
	if err != nil {
		return Config{}, fmt.Errorf("config: resolve %s: %w", p, err)
	}
	cfg.Resolve(dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", p, err)
	}
	return cfg, nil
}

// Discover loads the nearest linkmap.yaml above dir, or falls back to
// DefaultConfig rooted at dir. It returns the file used ("" for defaults).
func Discover(dir string) (Config, string, error) {
	if p, ok := Find(dir); ok {
		cfg, err := Load(p)
		return cfg, p, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, "", fmt.Errorf("config: resolve %s: %w", dir, err)
	}
	cfg := DefaultConfig()
	cfg.Resolve(abs)
	return cfg, "", nil
}

// Resolve turns RepoRoot into an absolute path (relative to base) and
// places relative cache and journal paths under it.
func (c *Config) Resolve(base string) {
	if c.RepoRoot == "" || c.RepoRoot == "." {
		c.RepoRoot = base
	} else if !filepath.IsAbs(c.RepoRoot) {
		c.RepoRoot = filepath.Join(base, c.RepoRoot)
	}
	if c.CacheFile != "" && !filepath.IsAbs(c.CacheFile) {
		c.CacheFile = filepath.Join(c.RepoRoot, c.CacheFile)
	}
	if c.JournalDir != "" && !filepath.IsAbs(c.JournalDir) {
		c.JournalDir = filepath.Join(c.RepoRoot, c.JournalDir)
	}
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.CacheFile == "" {
		return errors.New("cache_file must not be empty")
	}
	if len(c.Roots) == 0 {
		return errors.New("at least one root is required")
	}
	for i, r := range c.Roots {
		p := mapping.CleanPath(r.Path)
		if p == "" {
			return fmt.Errorf("roots[%d]: path must not be empty", i)
		}
		if path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
			return fmt.Errorf("roots[%d]: path %q must stay inside the repository", i, r.Path)
		}
		if _, err := address.ParseType(string(r.DocumentType)); err != nil {
			return fmt.Errorf("roots[%d]: %w", i, err)
		}
		if r.MaxDepth < 0 {
			return fmt.Errorf("roots[%d]: max_depth must not be negative", i)
		}
		for _, g := range append(append([]string(nil), r.Exclude...), c.Exclude...) {
			if _, err := path.Match(g, ""); err != nil {
				return fmt.Errorf("roots[%d]: exclude pattern %q: %w", i, g, err)
			}
		}
	}
	if _, err := c.Deriver(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// RootSpecs returns the roots with normalized paths and types and the
// global exclude list filled in where a root has none.
func (c Config) RootSpecs() []mapping.RootSpec {
	out := make([]mapping.RootSpec, len(c.Roots))
	for i, r := range c.Roots {
		r.Path = mapping.CleanPath(r.Path)
		if t, err := address.ParseType(string(r.DocumentType)); err == nil {
			r.DocumentType = t
		}
		if r.Exclude == nil {
			r.Exclude = append([]string(nil), c.Exclude...)
		}
		out[i] = r
	}
	return out
}

// Deriver builds the id deriver from the configured strip patterns.
func (c Config) Deriver() (*discovery.Deriver, error) {
	patterns := c.Derivation.StripPatterns
	if len(patterns) == 0 {
		patterns = discovery.DefaultStripPatterns
	}
	return discovery.NewDeriver(patterns)
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
