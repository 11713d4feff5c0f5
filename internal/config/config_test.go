package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/linkmap/internal/address"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, FileName)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// --- DefaultConfig ---

func TestDefaultConfig_Roots(t *testing.T) {
	cfg := DefaultConfig()

	want := []struct {
		path string
		typ  address.DocumentType
	}{
		{"standards", address.TypeStandard},
		{"tasks", address.TypeTask},
		{"incidents", address.TypeIncident},
		{".", address.TypeDirectory},
	}
	if len(cfg.Roots) != len(want) {
		t.Fatalf("got %d roots, want %d", len(cfg.Roots), len(want))
	}
	for i, w := range want {
		if cfg.Roots[i].Path != w.path || cfg.Roots[i].DocumentType != w.typ {
			t.Errorf("roots[%d] = %s(%s), want %s(%s)", i, cfg.Roots[i].Path, cfg.Roots[i].DocumentType, w.path, w.typ)
		}
	}
	if cfg.Roots[3].MaxDepth != 1 {
		t.Errorf("directory root MaxDepth = %d, want 1", cfg.Roots[3].MaxDepth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestRootSpecs_InheritGlobalExclude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roots[1].Exclude = []string{"drafts"}

	specs := cfg.RootSpecs()
	if got := strings.Join(specs[0].Exclude, ","); got != "*archive*,.*,node_modules" {
		t.Errorf("standards exclude = %q", got)
	}
	if got := strings.Join(specs[1].Exclude, ","); got != "drafts" {
		t.Errorf("tasks exclude = %q, want own list kept", got)
	}
	if !specs[3].Excludes(".linkmap") {
		t.Error("cache directory should be excluded by default")
	}
}

// --- Find / Load ---

func TestFind_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "roots:\n  - path: docs\n    type: standard\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	p, ok := Find(nested)
	if !ok {
		t.Fatal("expected to find linkmap.yaml")
	}
	want, _ := filepath.Abs(filepath.Join(root, FileName))
	if p != want {
		t.Errorf("Find() = %s, want %s", p, want)
	}
}

func TestLoad_OverridesAndResolves(t *testing.T) {
	root := t.TempDir()
	p := writeConfig(t, root, `
cache_file: build/map.json
roots:
  - path: docs/standards
    type: Standard
    extensions: [".md", ".markdown"]
  - path: tickets
    type: task
    exclude: ["done"]
derivation:
  strip_patterns:
    - '^draft[\s_-]+'
log_level: debug
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	absRoot, _ := filepath.Abs(root)
	if cfg.RepoRoot != absRoot {
		t.Errorf("RepoRoot = %s, want %s", cfg.RepoRoot, absRoot)
	}
	if cfg.CacheFile != filepath.Join(absRoot, "build", "map.json") {
		t.Errorf("CacheFile = %s", cfg.CacheFile)
	}
	if cfg.JournalDir != filepath.Join(absRoot, ".linkmap") {
		t.Errorf("JournalDir = %s, want default under repo root", cfg.JournalDir)
	}
	if len(cfg.Roots) != 2 {
		t.Fatalf("got %d roots, want 2 (file replaces defaults)", len(cfg.Roots))
	}

	specs := cfg.RootSpecs()
	if specs[0].DocumentType != address.TypeStandard {
		t.Errorf("type = %s, want normalized standard", specs[0].DocumentType)
	}
	if !specs[0].AllowsExtension("x.markdown") {
		t.Error("extensions not applied")
	}
	if !specs[1].Excludes("done") || specs[1].Excludes("archive") {
		t.Errorf("tasks exclude = %v", specs[1].Exclude)
	}

	d, err := cfg.Deriver()
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Derive("Draft - Release Plan.md"); got != "release_plan" {
		t.Errorf("Derive() = %q, want release_plan", got)
	}

	lvl, err := cfg.Level()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("Level() = %v, %v", lvl, err)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(writeConfig(t, root, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Roots) != 4 {
		t.Errorf("got %d roots, want the 4 defaults", len(cfg.Roots))
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "colour: blue\n", "parse"},
		{"unknown type", "roots:\n  - path: x\n    type: widget\n", "unknown_type"},
		{"empty path", "roots:\n  - path: ''\n    type: task\n", "path must not be empty"},
		{"escaping path", "roots:\n  - path: ../elsewhere\n    type: task\n", "inside the repository"},
		{"negative depth", "roots:\n  - path: x\n    type: task\n    max_depth: -1\n", "max_depth"},
		{"bad strip pattern", "derivation:\n  strip_patterns: ['(']\n", "strip pattern"},
		{"bad log level", "log_level: loud\n", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), FileName)); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// --- Discover ---

func TestDiscover_FallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Find(dir); ok {
		t.Skip("a linkmap.yaml exists above the temp dir")
	}

	cfg, used, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if used != "" {
		t.Errorf("used = %q, want defaults", used)
	}
	abs, _ := filepath.Abs(dir)
	if cfg.RepoRoot != abs {
		t.Errorf("RepoRoot = %s, want %s", cfg.RepoRoot, abs)
	}
	if cfg.CacheFile != filepath.Join(abs, ".linkmap", "mappings.json") {
		t.Errorf("CacheFile = %s", cfg.CacheFile)
	}
}

func TestDiscover_UsesNearestFile(t *testing.T) {
	root := t.TempDir()
	p := writeConfig(t, root, "repo_root: repo\n")
	sub := filepath.Join(root, "repo", "tasks")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := Discover(sub)
	if err != nil {
		t.Fatal(err)
	}
	wantUsed, _ := filepath.Abs(p)
	if used != wantUsed {
		t.Errorf("used = %s, want %s", used, wantUsed)
	}
	absRoot, _ := filepath.Abs(root)
	if cfg.RepoRoot != filepath.Join(absRoot, "repo") {
		t.Errorf("RepoRoot = %s", cfg.RepoRoot)
	}
}
