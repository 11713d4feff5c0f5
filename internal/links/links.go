// Package links rewrites markdown link targets between physical paths and
// abstract addresses.
//
// Only the target between the parentheses of [label](target) is ever
// replaced; labels, whitespace and all non-link text are copied through
// byte for byte. Targets that cannot be converted are left as they are.
package links

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/HendryAvila/linkmap/internal/address"
)

// linkRe matches [label](target) on a single line. The label may hold one
// level of brackets (an image link) and the target one level of
// parentheses, as in [![logo](logo.png)](notes (v2).md).
var linkRe = regexp.MustCompile(`\[((?:[^\[\]\n]|\[[^\[\]\n]*\])*)\]\(((?:[^()\n]|\([^()\n]*\))*)\)`)

// Lookup answers the two questions a conversion needs.
type Lookup interface {
	// AddressForPath returns the abstract address mapped to a
	// repository-relative physical path.
	AddressForPath(physicalPath string) (string, bool)
	// PathForAddress resolves an abstract address (either form) to a
	// repository-relative physical path.
	PathForAddress(addr string) (string, error)
}

// Result is the converted text plus counters for caller-side reporting.
type Result struct {
	Text              string   `json:"text"`
	Converted         int      `json:"converted"`
	Unresolved        int      `json:"unresolved"`
	UnresolvedTargets []string `json:"unresolved_targets,omitempty"`
}

// Converter rewrites link targets using a Lookup.
type Converter struct {
	lookup Lookup
}

// NewConverter creates a Converter.
func NewConverter(lookup Lookup) *Converter {
	return &Converter{lookup: lookup}
}

// Convert rewrites every link target in text. baseDir is the
// repository-relative directory of the document the text belongs to;
// relative targets are resolved against it and physical paths are written
// relative to it. An empty baseDir means the repository root.
func (c *Converter) Convert(text string, toAbstract bool, baseDir string) Result {
	res := Result{}
	res.Text = c.convert(text, toAbstract, cleanBase(baseDir), &res)
	return res
}

func (c *Converter) convert(text string, toAbstract bool, baseDir string, res *Result) string {
	var b strings.Builder
	last := 0
	for _, loc := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		labelStart, labelEnd := loc[2], loc[3]
		start, end := loc[4], loc[5]

		b.WriteString(text[last:labelStart])
		// The label may itself be an image link.
		b.WriteString(c.convert(text[labelStart:labelEnd], toAbstract, baseDir, res))
		b.WriteString(text[labelEnd:start])

		raw := text[start:end]
		var replacement string
		var ok bool
		if toAbstract {
			replacement, ok = c.toAbstract(raw, baseDir)
		} else {
			replacement, ok = c.toPhysical(raw, baseDir, res)
		}
		if ok {
			b.WriteString(replacement)
			res.Converted++
		} else {
			b.WriteString(raw)
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// toAbstract only rewrites targets written in the canonical form that
// toPhysical emits, so converting back reproduces the original bytes.
func (c *Converter) toAbstract(raw, baseDir string) (string, bool) {
	t := splitTarget(raw)
	if t.body == "" || address.LooksLikeAddress(t.body) || hasURLScheme(t.body) || strings.HasPrefix(t.body, "/") {
		return "", false
	}

	joined := path.Join(baseDir, t.body)
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", false
	}
	if relativeTo(baseDir, joined) != t.body {
		return "", false
	}
	addr, found := c.lookup.AddressForPath(joined)
	if !found {
		return "", false
	}
	return t.rebuild(addr), true
}

func (c *Converter) toPhysical(raw, baseDir string, res *Result) (string, bool) {
	t := splitTarget(raw)
	if !address.LooksLikeAddress(t.body) {
		return "", false
	}

	p, err := c.lookup.PathForAddress(t.body)
	if err != nil {
		res.Unresolved++
		res.UnresolvedTargets = append(res.UnresolvedTargets, t.body)
		return "", false
	}
	return t.rebuild(relativeTo(baseDir, p)), true
}

// target is a link target split into the part that is converted and the
// decorations that are copied back unchanged.
type target struct {
	lead, trail string // surrounding whitespace
	angled      bool   // <...> form
	body        string // path or address
	fragment    string // "#section", kept verbatim
}

func splitTarget(raw string) target {
	var t target
	trimmed := strings.TrimLeft(raw, " \t")
	t.lead = raw[:len(raw)-len(trimmed)]
	core := strings.TrimRight(trimmed, " \t")
	t.trail = trimmed[len(core):]

	if len(core) >= 2 && core[0] == '<' && core[len(core)-1] == '>' {
		t.angled = true
		core = core[1 : len(core)-1]
	}
	if i := strings.IndexByte(core, '#'); i >= 0 {
		t.body, t.fragment = core[:i], core[i:]
	} else {
		t.body = core
	}
	return t
}

func (t target) rebuild(body string) string {
	core := body + t.fragment
	if t.angled {
		core = "<" + core + ">"
	}
	return t.lead + core + t.trail
}

// hasURLScheme reports targets such as https://..., mailto:... or
// file:... that never name a repository path.
func hasURLScheme(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	// A one-letter scheme is a Windows drive, not a URL.
	return len(u.Scheme) > 1
}

func cleanBase(baseDir string) string {
	baseDir = strings.TrimSpace(filepath.ToSlash(baseDir))
	if baseDir == "" {
		return "."
	}
	return path.Clean(baseDir)
}

// relativeTo expresses the repository-relative path p relative to baseDir.
func relativeTo(baseDir, p string) string {
	if baseDir == "." {
		return p
	}
	rel, err := filepath.Rel(filepath.FromSlash(baseDir), filepath.FromSlash(p))
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
