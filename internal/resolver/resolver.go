// Package resolver answers abstract-address and physical-path queries
// against the mapping table, rescanning the document tree when the cache
// has gone stale.
//
// A Resolver owns its store and discovery engine; there is no package
// state, so independent instances can run side by side in one process.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/discovery"
	"github.com/HendryAvila/linkmap/internal/journal"
	"github.com/HendryAvila/linkmap/internal/links"
	"github.com/HendryAvila/linkmap/internal/mapping"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// errUpToDate aborts a store update when another writer already rescanned.
var errUpToDate = errors.New("mapping table is up to date")

// Recorder receives scan runs and manual registrations. The journal
// store satisfies it; failures are logged, never returned to callers.
type Recorder interface {
	RecordScan(run journal.ScanRun) (string, error)
	RecordRegistration(reg journal.Registration) (int64, error)
}

// Options configures a Resolver.
type Options struct {
	// RepoRoot is the directory physical paths are relative to.
	RepoRoot string
	// Roots are scanned in order; earlier roots win id collisions.
	Roots []mapping.RootSpec
	// CachePath defaults to <RepoRoot>/.linkmap/mappings.json.
	CachePath string
	Deriver   *discovery.Deriver
	Recorder  Recorder
	Logger    *slog.Logger
}

// Resolver is safe for concurrent use.
type Resolver struct {
	mu       sync.Mutex
	repoRoot string
	roots    []mapping.RootSpec
	store    *mapping.Store
	engine   *discovery.Engine
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Resolver. Nothing is read from disk until the first query.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cachePath := opts.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(opts.RepoRoot, ".linkmap", "mappings.json")
	}
	return &Resolver{
		repoRoot: opts.RepoRoot,
		roots:    append([]mapping.RootSpec(nil), opts.Roots...),
		store:    mapping.NewStore(cachePath),
		engine:   discovery.New(discovery.Options{RepoRoot: opts.RepoRoot, Deriver: opts.Deriver, Logger: logger}),
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// Filter narrows Mappings.
type Filter struct {
	// Type restricts results to one document type; empty means all.
	Type address.DocumentType
}

// RegisterOptions controls Register.
type RegisterOptions struct {
	// NoOverwrite refuses to replace an existing mapping for the key.
	NoOverwrite bool
}

// ScanReport describes the outcome of Refresh.
type ScanReport struct {
	Scanned     bool               `json:"scanned"`
	Forced      bool               `json:"forced"`
	RunID       string             `json:"run_id,omitempty"`
	Mappings    int                `json:"mappings"`
	Files       int                `json:"files"`
	Conflicts   []mapping.Conflict `json:"conflicts"`
	Warnings    []mapping.Warning  `json:"warnings"`
	DurationMS  int64              `json:"duration_ms"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Stats summarizes the mapping table.
type Stats struct {
	Total       int            `json:"total"`
	ByType      map[string]int `json:"by_type"`
	Manual      int            `json:"manual"`
	Conflicts   int            `json:"conflicts"`
	Warnings    int            `json:"warnings"`
	GeneratedAt time.Time      `json:"generated_at"`
	CachePath   string         `json:"cache_path"`
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Resolve maps an abstract address (either form) to its physical path.
func (r *Resolver) Resolve(ctx context.Context, addr string) (string, error) {
	a, err := address.Parse(addr)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return "", err
	}
	m, ok := r.store.Get(a.Type, a.ID)
	if !ok {
		return "", &NotFoundError{Type: a.Type, ID: a.ID}
	}
	return m.PhysicalPath, nil
}

// ResolvePhysical maps a repository-relative path to its abstract address.
func (r *Resolver) ResolvePhysical(ctx context.Context, physicalPath string) (string, error) {
	p := mapping.CleanPath(physicalPath)
	if p == "" || p == "." {
		return "", invalidf("physical path is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return "", err
	}
	m, ok := r.store.ByPath(p)
	if !ok {
		return "", &NotFoundError{Path: p}
	}
	return m.Address(), nil
}

// Mappings lists the table ordered by logical id, type breaking ties.
func (r *Resolver) Mappings(ctx context.Context, f Filter) ([]mapping.Mapping, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, &address.ParseError{Input: string(f.Type), Reason: address.ReasonUnknownType}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return nil, err
	}
	var out []mapping.Mapping
	for _, m := range r.store.All() {
		if f.Type == "" || m.DocumentType == f.Type {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LogicalID < out[j].LogicalID
	})
	return out, nil
}

// Conflicts returns the collisions recorded by the latest scan.
func (r *Resolver) Conflicts(ctx context.Context) ([]mapping.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return nil, err
	}
	return r.store.Conflicts(), nil
}

// Warnings returns every warning recorded by the latest scan.
func (r *Resolver) Warnings(ctx context.Context) ([]mapping.Warning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return nil, err
	}
	return r.store.Warnings(), nil
}

// Statistics summarizes the table.
func (r *Resolver) Statistics(ctx context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return Stats{}, err
	}
	st := Stats{
		ByType:      make(map[string]int, len(address.Types)),
		Conflicts:   len(r.store.Conflicts()),
		Warnings:    len(r.store.Warnings()),
		GeneratedAt: r.store.GeneratedAt(),
		CachePath:   r.store.Path(),
	}
	for _, t := range address.Types {
		st.ByType[string(t)] = 0
	}
	for _, m := range r.store.All() {
		st.Total++
		st.ByType[string(m.DocumentType)]++
		if m.Manual {
			st.Manual++
		}
	}
	return st, nil
}

// ConvertLinks rewrites the link targets of a markdown text. baseDir is
// the repository-relative directory of the document; empty means the
// repository root. The table is read, never modified.
func (r *Resolver) ConvertLinks(ctx context.Context, text string, toAbstract bool, baseDir string) (links.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return links.Result{}, err
	}
	return links.NewConverter(storeLookup{r.store}).Convert(text, toAbstract, baseDir), nil
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// Register records a manual mapping. Manual mappings survive rescans and
// win over discovered ones for the same key. The path is not checked for
// existence.
func (r *Resolver) Register(ctx context.Context, t address.DocumentType, id, physicalPath string, opts RegisterOptions) (mapping.Mapping, error) {
	if !t.Valid() {
		return mapping.Mapping{}, &address.ParseError{Input: string(t), Reason: address.ReasonUnknownType}
	}
	if id == "" {
		return mapping.Mapping{}, invalidf("logical id is required")
	}
	p := mapping.CleanPath(physicalPath)
	if p == "" || p == "." {
		return mapping.Mapping{}, invalidf("physical path is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return mapping.Mapping{}, err
	}

	m := mapping.Mapping{
		LogicalID:    id,
		DocumentType: t,
		PhysicalPath: p,
		DisplayName:  r.engine.Deriver().Title(path.Base(p)),
		DiscoveredAt: timeNow(),
		Manual:       true,
	}
	var previous string
	err := r.store.Update(func(s *mapping.Store) error {
		if existing, ok := s.Get(t, id); ok {
			if opts.NoOverwrite {
				return &ConflictError{Type: t, ID: id, ExistingPath: existing.PhysicalPath}
			}
			previous = existing.PhysicalPath
			if existing.PhysicalPath == p {
				m.WordCount = existing.WordCount
			}
		}
		s.Upsert(m)
		return nil
	})
	if err != nil {
		return mapping.Mapping{}, err
	}

	r.logger.Info("manual mapping registered", "address", m.Address(), "path", p, "previous", previous)
	if r.recorder != nil {
		if _, err := r.recorder.RecordRegistration(journal.Registration{
			DocumentType: t,
			LogicalID:    id,
			PhysicalPath: p,
			PreviousPath: previous,
			CreatedAt:    m.DiscoveredAt,
		}); err != nil {
			r.logger.Warn("journal: record registration failed", "error", err)
		}
	}
	return m, nil
}

// ClearManual drops every manual mapping and rebuilds the table so the
// discovered entries they shadowed come back. It returns the number of
// manual mappings removed.
func (r *Resolver) ClearManual(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	if err := r.store.Update(func(s *mapping.Store) error {
		removed = s.ClearManual()
		return nil
	}); err != nil {
		return 0, err
	}
	if _, err := r.rescan(ctx, true); err != nil {
		return removed, err
	}
	return removed, nil
}

// Refresh rescans the document tree. Without force the scan only runs
// when the cache is stale.
func (r *Resolver) Refresh(ctx context.Context, force bool) (ScanReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.rescan(ctx, force)
	if err != nil {
		return ScanReport{}, err
	}
	if !report.Scanned {
		// rescan loaded the current cache before deciding to skip.
		report.Mappings = r.store.Len()
		report.Conflicts = r.store.Conflicts()
		report.Warnings = r.store.Warnings()
		report.GeneratedAt = r.store.GeneratedAt()
	}
	return report, nil
}

// ─── Freshness ───────────────────────────────────────────────────────────────

// ensureFresh loads the cache and rescans once if it is stale.
func (r *Resolver) ensureFresh(ctx context.Context) error {
	var stale bool
	if err := r.store.View(func(s *mapping.Store) error {
		var err error
		stale, err = s.IsStale(r.repoRoot, r.roots)
		return err
	}); err != nil {
		return fmt.Errorf("resolver: check cache: %w", err)
	}
	if !stale {
		return nil
	}
	_, err := r.rescan(ctx, false)
	return err
}

// rescan runs discovery under the exclusive cache lock. Without force the
// staleness check is repeated inside the lock, since another process may
// have rebuilt the cache in the meantime.
func (r *Resolver) rescan(ctx context.Context, force bool) (ScanReport, error) {
	var res *discovery.Result
	err := r.store.Update(func(s *mapping.Store) error {
		if !force {
			stale, err := s.IsStale(r.repoRoot, r.roots)
			if err != nil {
				return err
			}
			if !stale {
				return errUpToDate
			}
		}
		var err error
		res, err = r.engine.Scan(ctx, r.roots)
		if err != nil {
			return err
		}
		s.ReplaceDiscovered(res.Mappings, res.Conflicts, res.Warnings, r.roots, res.StartedAt)
		return nil
	})
	if errors.Is(err, errUpToDate) {
		return ScanReport{Forced: force}, nil
	}
	if err != nil {
		return ScanReport{}, fmt.Errorf("resolver: rescan: %w", err)
	}

	report := ScanReport{
		Scanned:     true,
		Forced:      force,
		Mappings:    r.store.Len(),
		Files:       res.Files,
		Conflicts:   res.Conflicts,
		Warnings:    res.Warnings,
		DurationMS:  res.Duration.Milliseconds(),
		GeneratedAt: res.StartedAt,
	}
	r.logger.Info("mapping table rebuilt",
		"mappings", report.Mappings,
		"conflicts", len(res.Conflicts),
		"warnings", len(res.Warnings),
		"forced", force,
	)

	if r.recorder != nil {
		id, err := r.recorder.RecordScan(journal.ScanRun{
			StartedAt: res.StartedAt,
			Duration:  res.Duration,
			Forced:    force,
			Mappings:  report.Mappings,
			Conflicts: res.Conflicts,
			Warnings:  res.Warnings,
		})
		if err != nil {
			r.logger.Warn("journal: record scan failed", "error", err)
		} else {
			report.RunID = id
		}
	}
	return report, nil
}

// storeLookup adapts a loaded store to links.Lookup.
type storeLookup struct {
	store *mapping.Store
}

func (l storeLookup) AddressForPath(p string) (string, bool) {
	m, ok := l.store.ByPath(p)
	if !ok {
		return "", false
	}
	return m.Address(), true
}

func (l storeLookup) PathForAddress(addr string) (string, error) {
	a, err := address.Parse(addr)
	if err != nil {
		return "", err
	}
	m, ok := l.store.Get(a.Type, a.ID)
	if !ok {
		return "", &NotFoundError{Type: a.Type, ID: a.ID}
	}
	return m.PhysicalPath, nil
}
