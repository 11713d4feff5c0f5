package links

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/linkmap/internal/address"
)

const taskMasterPath = "standards/0.0 task master 10 may 2226 cet by ilya krasinsky.md"

// mapLookup is an in-memory Lookup keyed by physical path.
type mapLookup map[string]string

func (m mapLookup) AddressForPath(p string) (string, bool) {
	a, ok := m[p]
	return a, ok
}

func (m mapLookup) PathForAddress(s string) (string, error) {
	a, err := address.Parse(s)
	if err != nil {
		return "", err
	}
	for p, addr := range m {
		if addr == a.String() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found", a)
}

func testLookup() mapLookup {
	return mapLookup{
		taskMasterPath:         "abstract://standard:task_master",
		"tasks/todo.md":        "abstract://task:todo",
		"standards":            "abstract://directory:standards",
		"incidents/outage.md":  "abstract://incident:outage",
		"standards/a b/c d.md": "abstract://standard:c_d",
	}
}

func TestConvert_ToAbstract(t *testing.T) {
	c := NewConverter(testLookup())
	in := "[Task Master](../standards/0.0 task master 10 may 2226 cet by ilya krasinsky.md)"

	res := c.Convert(in, true, "tasks")

	assert.Equal(t, "[Task Master](abstract://standard:task_master)", res.Text)
	assert.Equal(t, 1, res.Converted)
	assert.Equal(t, 0, res.Unresolved)
}

func TestConvert_RoundTrip(t *testing.T) {
	c := NewConverter(testLookup())
	in := "# Plan\n\nSee [Task Master](../standards/0.0 task master 10 may 2226 cet by ilya krasinsky.md) and\n" +
		"[todo]( todo.md#next ) plus [dir](<../standards>) and [ext](https://example.com/x.md).\n" +
		"Inline `code` [outage](../incidents/outage.md) done."

	abstract := c.Convert(in, true, "tasks")
	require.Equal(t, 4, abstract.Converted)
	assert.Contains(t, abstract.Text, "[todo]( abstract://task:todo#next )")
	assert.Contains(t, abstract.Text, "[dir](<abstract://directory:standards>)")
	assert.Contains(t, abstract.Text, "[ext](https://example.com/x.md)")

	back := c.Convert(abstract.Text, false, "tasks")
	assert.Equal(t, in, back.Text)
	assert.Equal(t, 0, back.Unresolved)
}

func TestConvert_ToAbstractFromRepoRoot(t *testing.T) {
	c := NewConverter(testLookup())
	res := c.Convert("[x](tasks/todo.md) [y](./tasks/todo.md)", true, "")
	assert.Equal(t, "[x](abstract://task:todo) [y](./tasks/todo.md)", res.Text)
	assert.Equal(t, 1, res.Converted)
}

func TestConvert_PercentEncodedTargetLeftUntouched(t *testing.T) {
	c := NewConverter(testLookup())
	in := "[c](standards/a%20b/c%20d.md)"
	res := c.Convert(in, true, "")
	assert.Equal(t, in, res.Text)
	assert.Equal(t, 0, res.Converted)
}

func TestConvert_NonCanonicalTargetsRoundTrip(t *testing.T) {
	c := NewConverter(testLookup())
	tests := []struct {
		name    string
		in      string
		baseDir string
		wantAbs string
	}{
		{"canonical", "[y](tasks/todo.md)", "", "[y](abstract://task:todo)"},
		{"canonical from subdir", "[y](../tasks/todo.md)", "incidents", "[y](abstract://task:todo)"},
		{"dot prefix", "[y](./tasks/todo.md)", "", "[y](./tasks/todo.md)"},
		{"doubled slash", "[y](tasks//todo.md)", "", "[y](tasks//todo.md)"},
		{"trailing slash", "[d](standards/)", "", "[d](standards/)"},
		{"percent encoded", "[c](standards/a%20b/c%20d.md)", "", "[c](standards/a%20b/c%20d.md)"},
		{"detour", "[y](../tasks/todo.md)", "tasks", "[y](../tasks/todo.md)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abstract := c.Convert(tt.in, true, tt.baseDir)
			assert.Equal(t, tt.wantAbs, abstract.Text)

			back := c.Convert(abstract.Text, false, tt.baseDir)
			assert.Equal(t, tt.in, back.Text)
		})
	}
}

func TestConvert_ParenthesesInTarget(t *testing.T) {
	lookup := testLookup()
	lookup["tasks/notes (v2).md"] = "abstract://task:notes_v2"
	c := NewConverter(lookup)
	in := "[n](notes (v2).md) and (aside)"

	abstract := c.Convert(in, true, "tasks")
	assert.Equal(t, "[n](abstract://task:notes_v2) and (aside)", abstract.Text)

	back := c.Convert(abstract.Text, false, "tasks")
	assert.Equal(t, in, back.Text)
}

func TestConvert_ImageWrappedLink(t *testing.T) {
	lookup := testLookup()
	lookup["tasks/logo.png"] = "abstract://task:logo"
	c := NewConverter(lookup)
	in := "[![logo](logo.png)](todo.md#top)"

	abstract := c.Convert(in, true, "tasks")
	assert.Equal(t, "[![logo](abstract://task:logo)](abstract://task:todo#top)", abstract.Text)
	assert.Equal(t, 2, abstract.Converted)

	back := c.Convert(abstract.Text, false, "tasks")
	assert.Equal(t, in, back.Text)
	assert.Equal(t, 2, back.Converted)
}

func TestConvert_UnmappedLeftUntouched(t *testing.T) {
	c := NewConverter(testLookup())
	in := "[a](missing.md) [b](https://example.com) [c](mailto:x@y.z) [d]() [e](../../outside.md) [f](/abs/todo.md)"

	res := c.Convert(in, true, "tasks")

	assert.Equal(t, in, res.Text)
	assert.Equal(t, 0, res.Converted)
	assert.Equal(t, 0, res.Unresolved)
}

func TestConvert_ToPhysicalCountsUnresolved(t *testing.T) {
	c := NewConverter(testLookup())
	in := "[a](abstract://standard:task_master) [b](standard:nope) [c](abstract://widget:x) [d](https://example.com)"

	res := c.Convert(in, false, "")

	assert.Equal(t, "[a]("+taskMasterPath+") [b](standard:nope) [c](abstract://widget:x) [d](https://example.com)", res.Text)
	assert.Equal(t, 1, res.Converted)
	assert.Equal(t, 2, res.Unresolved)
	assert.Equal(t, []string{"standard:nope", "abstract://widget:x"}, res.UnresolvedTargets)
}

func TestConvert_ShortFormResolves(t *testing.T) {
	c := NewConverter(testLookup())
	res := c.Convert("[t](task:todo)", false, "standards")
	assert.Equal(t, "[t](../tasks/todo.md)", res.Text)
}

func TestConvert_PreservesNonLinkContent(t *testing.T) {
	c := NewConverter(testLookup())
	in := "  leading\n\n[not a link] (tasks/todo.md)\n\ttrailing [x](tasks/todo.md)  \n"

	res := c.Convert(in, true, "")

	assert.Equal(t, "  leading\n\n[not a link] (tasks/todo.md)\n\ttrailing [x](abstract://task:todo)  \n", res.Text)
}

func TestConvert_AlreadyAbstractIsNoop(t *testing.T) {
	c := NewConverter(testLookup())
	in := "[a](abstract://task:todo)"
	res := c.Convert(in, true, "")
	assert.Equal(t, in, res.Text)
	assert.Equal(t, 0, res.Converted)
}

func TestSplitTarget(t *testing.T) {
	tg := splitTarget("  <a b.md#sec>\t")
	assert.Equal(t, "  ", tg.lead)
	assert.Equal(t, "\t", tg.trail)
	assert.True(t, tg.angled)
	assert.Equal(t, "a b.md", tg.body)
	assert.Equal(t, "#sec", tg.fragment)
	assert.Equal(t, "  <x#sec>\t", tg.rebuild("x"))
}
