package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/mapping"
)

const taskMasterFile = "0.0 task master 10 may 2226 cet by ilya krasinsky.md"

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// fixtureTree builds a small document tree and returns its root.
func fixtureTree(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	write(t, repo, "standards/"+taskMasterFile, "# Task Master\n\nOne two three four.\n")
	write(t, repo, "standards/registry standard.md", "registry words here")
	write(t, repo, "standards/archive/old standard.md", "# Old\n")
	write(t, repo, "standards/sub/foo.md", "first foo")
	write(t, repo, "standards/zeta/foo.md", "second foo")
	write(t, repo, "standards/notes.txt", "not markdown")
	write(t, repo, "tasks/todo.md", "# TODO\n- a\n")
	return repo
}

func fixtureRoots() []mapping.RootSpec {
	return []mapping.RootSpec{
		{Path: "standards", DocumentType: address.TypeStandard, Exclude: []string{"*archive*"}},
		{Path: "tasks", DocumentType: address.TypeTask, Exclude: []string{"*archive*"}},
	}
}

func paths(ms []mapping.Mapping) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.PhysicalPath
	}
	return out
}

func TestScan_DiscoversAndOrders(t *testing.T) {
	repo := fixtureTree(t)
	e := New(Options{RepoRoot: repo})

	res, err := e.Scan(context.Background(), fixtureRoots())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"standards/" + taskMasterFile,
		"standards/registry standard.md",
		"standards/sub/foo.md",
		"tasks/todo.md",
	}, paths(res.Mappings))

	tm := res.Mappings[0]
	assert.Equal(t, "task_master", tm.LogicalID)
	assert.Equal(t, address.TypeStandard, tm.DocumentType)
	assert.Equal(t, "Task Master", tm.DisplayName)
	assert.Equal(t, 7, tm.WordCount)
	assert.Equal(t, address.TypeTask, res.Mappings[3].DocumentType)
}

func TestScan_Exclusion(t *testing.T) {
	repo := fixtureTree(t)
	res, err := New(Options{RepoRoot: repo}).Scan(context.Background(), fixtureRoots())
	require.NoError(t, err)

	for _, m := range res.Mappings {
		for _, seg := range strings.Split(m.PhysicalPath, "/") {
			assert.NotContains(t, strings.ToLower(seg), "archive", "excluded segment in %s", m.PhysicalPath)
		}
	}
}

func TestScan_CollisionKeepsFirstAndWarns(t *testing.T) {
	repo := fixtureTree(t)
	res, err := New(Options{RepoRoot: repo}).Scan(context.Background(), fixtureRoots())
	require.NoError(t, err)

	var foos int
	for _, m := range res.Mappings {
		if m.LogicalID == "foo" {
			foos++
			assert.Equal(t, "standards/sub/foo.md", m.PhysicalPath)
		}
	}
	assert.Equal(t, 1, foos)

	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, mapping.Conflict{
		DocumentType: address.TypeStandard,
		LogicalID:    "foo",
		KeptPath:     "standards/sub/foo.md",
		ShadowedPath: "standards/zeta/foo.md",
	}, res.Conflicts[0])

	var conflictWarnings []mapping.Warning
	for _, w := range res.Warnings {
		if w.Kind == mapping.WarningConflict {
			conflictWarnings = append(conflictWarnings, w)
		}
	}
	require.Len(t, conflictWarnings, 1)
	assert.Equal(t, "standards/zeta/foo.md", conflictWarnings[0].Path)
}

func TestScan_Deterministic(t *testing.T) {
	repo := fixtureTree(t)
	e := New(Options{RepoRoot: repo})

	first, err := e.Scan(context.Background(), fixtureRoots())
	require.NoError(t, err)
	second, err := e.Scan(context.Background(), fixtureRoots())
	require.NoError(t, err)

	require.Equal(t, len(first.Mappings), len(second.Mappings))
	for i := range first.Mappings {
		a, b := first.Mappings[i], second.Mappings[i]
		a.DiscoveredAt, b.DiscoveredAt = time.Time{}, time.Time{}
		assert.Equal(t, a, b)
	}
	assert.Equal(t, first.Conflicts, second.Conflicts)
}

func TestScan_DirectoryRoot(t *testing.T) {
	repo := fixtureTree(t)
	roots := []mapping.RootSpec{
		{Path: ".", DocumentType: address.TypeDirectory, Exclude: []string{"*archive*"}, MaxDepth: 1},
	}
	res, err := New(Options{RepoRoot: repo}).Scan(context.Background(), roots)
	require.NoError(t, err)

	assert.Equal(t, []string{"standards", "tasks"}, paths(res.Mappings))
	assert.Equal(t, "standards", res.Mappings[0].LogicalID)
	assert.Equal(t, address.TypeDirectory, res.Mappings[0].DocumentType)
}

func TestScan_DirectoryRootUnlimitedDepth(t *testing.T) {
	repo := fixtureTree(t)
	roots := []mapping.RootSpec{
		{Path: "standards", DocumentType: address.TypeDirectory, Exclude: []string{"*archive*"}},
	}
	res, err := New(Options{RepoRoot: repo}).Scan(context.Background(), roots)
	require.NoError(t, err)

	assert.Equal(t, []string{"standards/sub", "standards/zeta"}, paths(res.Mappings))
}

func TestScan_MissingRootWarns(t *testing.T) {
	repo := fixtureTree(t)
	roots := append(fixtureRoots(), mapping.RootSpec{Path: "incidents", DocumentType: address.TypeIncident})

	res, err := New(Options{RepoRoot: repo}).Scan(context.Background(), roots)
	require.NoError(t, err)

	var found bool
	for _, w := range res.Warnings {
		if w.Kind == mapping.WarningMissing && w.Path == "incidents" {
			found = true
		}
	}
	assert.True(t, found, "missing root should be reported as a warning")
	assert.Len(t, res.Mappings, 4)
}

func TestScan_UnreadableDirectoryWarns(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	repo := fixtureTree(t)
	locked := filepath.Join(repo, "standards", "sub")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	res, err := New(Options{RepoRoot: repo}).Scan(context.Background(), fixtureRoots())
	require.NoError(t, err)

	var found bool
	for _, w := range res.Warnings {
		if w.Kind == mapping.WarningUnreadable && w.Path == "standards/sub" {
			found = true
		}
	}
	assert.True(t, found)
	// zeta/foo.md takes the id once sub/ is unreadable.
	assert.Contains(t, paths(res.Mappings), "standards/zeta/foo.md")
	assert.Contains(t, paths(res.Mappings), "tasks/todo.md")
}

func TestScan_Cancelled(t *testing.T) {
	repo := fixtureTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{RepoRoot: repo}).Scan(ctx, fixtureRoots())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFirstHeading(t *testing.T) {
	assert.Equal(t, "Title", firstHeading([]byte("intro\n# Title #\nbody")))
	assert.Equal(t, "", firstHeading([]byte("## Sub only\n")))
	assert.Equal(t, "Windows", firstHeading([]byte("# Windows\r\n")))
}
