// Package discovery scans document roots and derives mappings from the
// files and directories it finds.
//
// The walk is deterministic: entries are visited in lexicographic order, so
// two scans of an unchanged tree yield the same mappings in the same order.
// Problems with individual subtrees become warnings on the result; only
// context cancellation aborts a scan.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/mapping"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// headingRe matches the first level-one markdown heading.
var headingRe = regexp.MustCompile(`(?m)^#[ \t]+([^\r\n]+?)[ \t#]*\r?$`)

// Result is the output of a scan.
type Result struct {
	Mappings  []mapping.Mapping
	Conflicts []mapping.Conflict
	Warnings  []mapping.Warning
	Files     int
	StartedAt time.Time
	Duration  time.Duration
}

// Options configures an Engine.
type Options struct {
	// RepoRoot is the directory physical paths are relative to.
	RepoRoot string
	// Deriver turns names into logical ids. Defaults to DefaultDeriver().
	Deriver *Deriver
	Logger  *slog.Logger
}

// Engine walks discovery roots.
type Engine struct {
	repoRoot string
	deriver  *Deriver
	logger   *slog.Logger
}

// New creates an Engine.
func New(opts Options) *Engine {
	deriver := opts.Deriver
	if deriver == nil {
		deriver = DefaultDeriver()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repoRoot: opts.RepoRoot, deriver: deriver, logger: logger}
}

// Deriver returns the id deriver used by the engine.
func (e *Engine) Deriver() *Deriver { return e.deriver }

// scan holds the state of one Scan call.
type scan struct {
	ctx    context.Context
	engine *Engine
	root   mapping.RootSpec
	now    time.Time
	seen   map[mapping.Key]string
	result *Result
}

// Scan walks every root in order and returns the mappings found. A key
// seen twice keeps the first path and records the second as a conflict.
// Scan only fails when ctx is cancelled.
func (e *Engine) Scan(ctx context.Context, roots []mapping.RootSpec) (*Result, error) {
	start := timeNow()
	res := &Result{StartedAt: start}
	seen := make(map[mapping.Key]string)

	for _, root := range roots {
		sc := &scan{ctx: ctx, engine: e, root: root, now: start, seen: seen, result: res}
		rel := mapping.CleanPath(root.Path)
		abs := filepath.Join(e.repoRoot, filepath.FromSlash(rel))

		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			msg := "root is not a directory"
			if err != nil {
				msg = err.Error()
			}
			res.Warnings = append(res.Warnings, mapping.Warning{Kind: mapping.WarningMissing, Path: rel, Message: msg})
			continue
		}
		if err := sc.walk(abs, rel, 0); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	e.logger.Debug("discovery scan complete",
		"roots", len(roots),
		"mappings", len(res.Mappings),
		"conflicts", len(res.Conflicts),
		"warnings", len(res.Warnings),
		"duration", res.Duration,
	)
	return res, nil
}

// walk visits one directory. depth is 0 for the root itself.
func (sc *scan) walk(abs, rel string, depth int) error {
	if err := sc.ctx.Err(); err != nil {
		return fmt.Errorf("discovery: scan interrupted: %w", err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		sc.warn(mapping.WarningUnreadable, rel, err)
		// ReadDir may return the entries read before the failure.
		if len(entries) == 0 {
			return nil
		}
	}

	for _, entry := range entries {
		name := entry.Name()
		childAbs := filepath.Join(abs, name)
		childRel := path.Join(rel, name)

		isDir, isFile := classify(entry, childAbs)
		switch {
		case isDir:
			if sc.root.Excludes(name) {
				continue
			}
			if sc.root.MaxDepth > 0 && depth+1 > sc.root.MaxDepth {
				continue
			}
			if sc.root.DocumentType == address.TypeDirectory {
				sc.addDir(name, childRel)
			}
			if err := sc.walk(childAbs, childRel, depth+1); err != nil {
				return err
			}
		case isFile:
			if sc.root.DocumentType == address.TypeDirectory || !sc.root.AllowsExtension(name) {
				continue
			}
			sc.result.Files++
			sc.addFile(name, childAbs, childRel)
		}
	}
	return nil
}

// classify reports whether entry is a directory to descend into or a
// regular file. Symlinked directories are not followed.
func classify(entry fs.DirEntry, abs string) (isDir, isFile bool) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(abs)
		if err != nil {
			return false, false
		}
		return false, info.Mode().IsRegular()
	}
	if entry.IsDir() {
		return true, false
	}
	return false, entry.Type().IsRegular()
}

func (sc *scan) addFile(name, abs, rel string) {
	id := sc.engine.deriver.Derive(name)
	if id == "" {
		sc.result.Warnings = append(sc.result.Warnings, mapping.Warning{
			Kind: mapping.WarningUnnamed, Path: rel, Message: "no logical id could be derived from the file name",
		})
		return
	}

	m := mapping.Mapping{
		LogicalID:    id,
		DocumentType: sc.root.DocumentType,
		PhysicalPath: rel,
		DisplayName:  sc.engine.deriver.Title(name),
		DiscoveredAt: sc.now,
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		sc.warn(mapping.WarningUnreadable, rel, err)
	} else {
		if title := firstHeading(data); title != "" {
			m.DisplayName = title
		}
		m.WordCount = len(strings.Fields(string(data)))
	}
	sc.add(m)
}

func (sc *scan) addDir(name, rel string) {
	id := sc.engine.deriver.DeriveDir(name)
	if id == "" {
		sc.result.Warnings = append(sc.result.Warnings, mapping.Warning{
			Kind: mapping.WarningUnnamed, Path: rel, Message: "no logical id could be derived from the directory name",
		})
		return
	}
	sc.add(mapping.Mapping{
		LogicalID:    id,
		DocumentType: address.TypeDirectory,
		PhysicalPath: rel,
		DisplayName:  name,
		DiscoveredAt: sc.now,
	})
}

// add applies the first-discovered-wins rule.
func (sc *scan) add(m mapping.Mapping) {
	key := m.Key()
	if kept, dup := sc.seen[key]; dup {
		sc.result.Conflicts = append(sc.result.Conflicts, mapping.Conflict{
			DocumentType: m.DocumentType,
			LogicalID:    m.LogicalID,
			KeptPath:     kept,
			ShadowedPath: m.PhysicalPath,
		})
		sc.result.Warnings = append(sc.result.Warnings, mapping.Warning{
			Kind:    mapping.WarningConflict,
			Path:    m.PhysicalPath,
			Message: fmt.Sprintf("%s is shadowed by %s", key, kept),
		})
		return
	}
	sc.seen[key] = m.PhysicalPath
	sc.result.Mappings = append(sc.result.Mappings, m)
}

func (sc *scan) warn(kind mapping.WarningKind, rel string, err error) {
	msg := err.Error()
	if errors.Is(err, fs.ErrPermission) {
		msg = "permission denied"
	}
	sc.result.Warnings = append(sc.result.Warnings, mapping.Warning{Kind: kind, Path: rel, Message: msg})
	sc.engine.logger.Warn("discovery: unreadable entry", "path", rel, "error", err)
}

func firstHeading(data []byte) string {
	m := headingRe.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}
