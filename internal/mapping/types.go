// Package mapping holds the logical-id to physical-path table and its
// JSON cache file.
//
// This package follows the same split as the rest of linkmap:
// - types.go: Mapping, RootSpec and the scan diagnostics records
// - store.go: the in-memory table, reverse index and persistence
// - stale.go: mtime-based cache invalidation
// - lock_*.go: the advisory lock guarding the cache file
package mapping

import (
	"path"
	"strings"
	"time"

	"github.com/HendryAvila/linkmap/internal/address"
)

// Mapping binds a logical id to the document backing it.
type Mapping struct {
	LogicalID    string               `json:"logical_id"`
	DocumentType address.DocumentType `json:"document_type"`
	PhysicalPath string               `json:"physical_path"`
	DisplayName  string               `json:"display_name"`
	WordCount    int                  `json:"word_count"`
	DiscoveredAt time.Time            `json:"discovered_at"`
	Manual       bool                 `json:"manual"`
}

// Key returns the (type, id) identity of the mapping.
func (m Mapping) Key() Key {
	return Key{Type: m.DocumentType, ID: m.LogicalID}
}

// Address returns the abstract address of the mapping.
func (m Mapping) Address() string {
	return address.Format(m.DocumentType, m.LogicalID)
}

// Key is the unique identity of a mapping inside the store.
type Key struct {
	Type address.DocumentType
	ID   string
}

func (k Key) String() string {
	return string(k.Type) + ":" + k.ID
}

// RootSpec describes one discovery root.
type RootSpec struct {
	Path         string               `json:"path" yaml:"path"`
	DocumentType address.DocumentType `json:"document_type" yaml:"type"`
	Extensions   []string             `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Exclude      []string             `json:"exclude_patterns,omitempty" yaml:"exclude,omitempty"`
	MaxDepth     int                  `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
}

// Excludes reports whether a directory named name matches one of the
// root's exclusion globs. Matching is case-insensitive and applies to
// the base name only.
func (r RootSpec) Excludes(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range r.Exclude {
		ok, err := path.Match(strings.ToLower(pattern), lower)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// AllowsExtension reports whether a file with the given name is eligible.
// An empty allow-list accepts only markdown.
func (r RootSpec) AllowsExtension(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	if len(r.Extensions) == 0 {
		return ext == ".md"
	}
	for _, e := range r.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if e == ext {
			return true
		}
	}
	return false
}

// Equal reports whether two root specs describe the same discovery input.
func (r RootSpec) Equal(o RootSpec) bool {
	return r.Path == o.Path &&
		r.DocumentType == o.DocumentType &&
		r.MaxDepth == o.MaxDepth &&
		equalStrings(r.Extensions, o.Extensions) &&
		equalStrings(r.Exclude, o.Exclude)
}

// SameRoots reports whether two root lists are identical, order included.
func SameRoots(a, b []RootSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Scan diagnostics ---

// Conflict records a path shadowed by an earlier mapping with the same key.
type Conflict struct {
	DocumentType address.DocumentType `json:"document_type"`
	LogicalID    string               `json:"logical_id"`
	KeptPath     string               `json:"kept_path"`
	ShadowedPath string               `json:"shadowed_path"`
}

// WarningKind classifies a non-fatal scan problem.
type WarningKind string

const (
	WarningUnreadable WarningKind = "unreadable"
	WarningConflict   WarningKind = "conflict"
	WarningUnnamed    WarningKind = "unnamed"
	WarningMissing    WarningKind = "missing_root"
)

// Warning is a non-fatal problem found during discovery. Warnings are
// accumulated and returned with the scan result, never raised.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Path    string      `json:"path"`
	Message string      `json:"message"`
}
