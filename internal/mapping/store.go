package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/linkmap/internal/address"
)

// cacheFile is the on-disk JSON document.
type cacheFile struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Roots       []RootSpec `json:"roots"`
	Mappings    []Mapping  `json:"mappings"`
	Conflicts   []Conflict `json:"conflicts,omitempty"`
	Warnings    []Warning  `json:"warnings,omitempty"`
}

// Store is the in-memory mapping table backed by a single JSON cache file.
//
// A Store is not safe for concurrent use; the resolver serializes access.
// Cross-process access goes through View and Update, which hold the
// advisory lock for the whole load-modify-save cycle.
type Store struct {
	path string

	byKey  map[Key]Mapping
	byPath map[string]Key

	generatedAt time.Time
	roots       []RootSpec
	conflicts   []Conflict
	warnings    []Warning

	// Identity of the cache file at the last Load/Save, used to skip
	// re-reading an unchanged file.
	loaded    bool
	loadedMod time.Time
	loadedLen int64
}

// NewStore creates an empty store persisted at cachePath.
func NewStore(cachePath string) *Store {
	return &Store{
		path:   cachePath,
		byKey:  make(map[Key]Mapping),
		byPath: make(map[string]Key),
	}
}

// Path returns the cache file location.
func (s *Store) Path() string { return s.path }

// GeneratedAt returns the time of the last full discovery (zero if never).
func (s *Store) GeneratedAt() time.Time { return s.generatedAt }

// Roots returns the root specs used by the last full discovery.
func (s *Store) Roots() []RootSpec { return append([]RootSpec(nil), s.roots...) }

// Conflicts returns the collisions recorded by the last full discovery.
func (s *Store) Conflicts() []Conflict { return append([]Conflict(nil), s.conflicts...) }

// Warnings returns the warnings recorded by the last full discovery.
func (s *Store) Warnings() []Warning { return append([]Warning(nil), s.warnings...) }

// Len returns the number of mappings in the table.
func (s *Store) Len() int { return len(s.byKey) }

// --- Persistence ---

// Load reads the cache file into memory, replacing the current table.
// A missing cache file yields an empty table. An unchanged file (same
// mtime and size as at the last Load/Save) is not re-read.
func (s *Store) Load() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.reset()
			s.loaded = true
			s.loadedMod, s.loadedLen = time.Time{}, -1
			return nil
		}
		return fmt.Errorf("mapping: stat cache: %w", err)
	}
	if s.loaded && info.ModTime().Equal(s.loadedMod) && info.Size() == s.loadedLen {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("mapping: read cache: %w", err)
	}
	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("mapping: parse cache %s: %w", s.path, err)
	}

	s.reset()
	s.generatedAt = cf.GeneratedAt
	s.roots = cf.Roots
	s.conflicts = cf.Conflicts
	s.warnings = cf.Warnings
	for _, m := range cf.Mappings {
		s.put(m)
	}
	s.reindex()

	s.loaded = true
	s.loadedMod, s.loadedLen = info.ModTime(), info.Size()
	return nil
}

// Save writes the table atomically: a temp file in the same directory is
// written, synced and renamed over the cache file.
func (s *Store) Save() error {
	cf := cacheFile{
		GeneratedAt: s.generatedAt,
		Roots:       s.roots,
		Mappings:    s.All(),
		Conflicts:   s.conflicts,
		Warnings:    s.warnings,
	}
	if cf.Roots == nil {
		cf.Roots = []RootSpec{}
	}
	if cf.Mappings == nil {
		cf.Mappings = []Mapping{}
	}

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("mapping: marshal cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mapping: create cache dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(s.path)+"-")
	if err != nil {
		return fmt.Errorf("mapping: create temp cache: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("mapping: write cache: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("mapping: sync cache: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("mapping: close cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("mapping: replace cache: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		s.loaded = true
		s.loadedMod, s.loadedLen = info.ModTime(), info.Size()
	}
	return nil
}

// View loads the cache under a shared lock and runs fn.
func (s *Store) View(fn func(*Store) error) error {
	unlock, err := lockFile(s.path+".lock", false)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.Load(); err != nil {
		return err
	}
	return fn(s)
}

// Update loads the cache under an exclusive lock, runs fn and saves the
// result. Nothing is written when fn fails, and the next Load re-reads
// the file so changes fn made before failing are discarded.
func (s *Store) Update(fn func(*Store) error) error {
	unlock, err := lockFile(s.path+".lock", true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.Load(); err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.loaded = false
		return err
	}
	if err := s.Save(); err != nil {
		s.loaded = false
		return err
	}
	return nil
}

// --- Table operations ---

// Upsert inserts or replaces a mapping. A discovered mapping never
// replaces a manual one; a manual mapping replaces anything. It reports
// whether the table changed.
func (s *Store) Upsert(m Mapping) bool {
	m.PhysicalPath = CleanPath(m.PhysicalPath)
	if existing, ok := s.byKey[m.Key()]; ok && existing.Manual && !m.Manual {
		return false
	}
	s.put(m)
	s.reindex()
	return true
}

// Get returns the mapping for (t, id).
func (s *Store) Get(t address.DocumentType, id string) (Mapping, bool) {
	m, ok := s.byKey[Key{Type: t, ID: id}]
	return m, ok
}

// ByPath returns the mapping whose physical path equals p.
func (s *Store) ByPath(p string) (Mapping, bool) {
	k, ok := s.byPath[CleanPath(p)]
	if !ok {
		return Mapping{}, false
	}
	return s.byKey[k], true
}

// All returns every mapping ordered by document type then logical id.
func (s *Store) All() []Mapping {
	out := make([]Mapping, 0, len(s.byKey))
	for _, m := range s.byKey {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentType != out[j].DocumentType {
			return typeRank(out[i].DocumentType) < typeRank(out[j].DocumentType)
		}
		return out[i].LogicalID < out[j].LogicalID
	})
	return out
}

// ReplaceDiscovered swaps every non-manual mapping for the output of a
// full scan. Manual mappings keep precedence over discovered ones.
func (s *Store) ReplaceDiscovered(mappings []Mapping, conflicts []Conflict, warnings []Warning, roots []RootSpec, generatedAt time.Time) {
	for k, m := range s.byKey {
		if !m.Manual {
			delete(s.byKey, k)
		}
	}
	for _, m := range mappings {
		m.Manual = false
		m.PhysicalPath = CleanPath(m.PhysicalPath)
		if existing, ok := s.byKey[m.Key()]; ok && existing.Manual {
			continue
		}
		s.put(m)
	}
	s.reindex()

	s.conflicts = append([]Conflict(nil), conflicts...)
	s.warnings = append([]Warning(nil), warnings...)
	s.roots = append([]RootSpec(nil), roots...)
	s.generatedAt = generatedAt
}

// ClearManual drops every manual mapping and returns how many were removed.
// Discovered entries shadowed by them only come back with the next scan.
func (s *Store) ClearManual() int {
	n := 0
	for k, m := range s.byKey {
		if m.Manual {
			delete(s.byKey, k)
			n++
		}
	}
	if n > 0 {
		s.reindex()
	}
	return n
}

func (s *Store) put(m Mapping) {
	s.byKey[m.Key()] = m
}

func (s *Store) reset() {
	s.byKey = make(map[Key]Mapping)
	s.byPath = make(map[string]Key)
	s.generatedAt = time.Time{}
	s.roots = nil
	s.conflicts = nil
	s.warnings = nil
}

// reindex rebuilds the reverse index. When several mappings share a path,
// manual entries win, then the lowest (type, id) in All order.
func (s *Store) reindex() {
	s.byPath = make(map[string]Key, len(s.byKey))
	for _, m := range s.All() {
		k, taken := s.byPath[m.PhysicalPath]
		if !taken || (m.Manual && !s.byKey[k].Manual) {
			s.byPath[m.PhysicalPath] = m.Key()
		}
	}
}

// typeRank orders document types the way address.Types lists them.
func typeRank(t address.DocumentType) int {
	for i, known := range address.Types {
		if known == t {
			return i
		}
	}
	return len(address.Types)
}

// CleanPath normalizes a repository-relative path: forward slashes, no
// "./" prefix, no redundant separators.
func CleanPath(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return ""
	}
	return path.Clean(p)
}
