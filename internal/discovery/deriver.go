package discovery

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
)

// DefaultStripPatterns are the case-insensitive regular expressions removed
// from a file stem, in order, before it is turned into a logical id. They
// target names like "0.0 task master 10 may 2226 cet by ilya krasinsky.md".
var DefaultStripPatterns = []string{
	// leading ISO date: "2024-05-10 retro"
	`^\d{4}-\d{2}-\d{2}[\s._-]*`,
	// leading numeric version: "0.0 ", "1.2.3-", "07_"
	`^\d+(?:\.\d+)*[\s._-]+`,
	// trailing author: "... by ilya krasinsky"
	`\s+by\s+.*$`,
	// trailing written date with optional time and zone: "10 may 2226 cet", "3 jan 2025 14:05 utc"
	`\s+\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{2,4}(?:\s+\d{1,2}[:.]\d{2})?(?:\s+[a-z]{2,5})?$`,
	// trailing ISO date: "retro 2024-05-10"
	`[\s_-]+\d{4}-\d{2}-\d{2}(?:[t\s]\d{1,2}[:.]\d{2}(?::\d{2})?)?$`,
}

// Deriver turns file and directory names into logical ids. It is pure and
// lossy: two names may derive the same id, and uniqueness is enforced by
// the scan's conflict rule instead.
type Deriver struct {
	strip []*regexp.Regexp
}

// NewDeriver compiles patterns (matched case-insensitively) into a Deriver.
func NewDeriver(patterns []string) (*Deriver, error) {
	d := &Deriver{}
	for _, p := range patterns {
		rx, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("discovery: compile strip pattern %q: %w", p, err)
		}
		d.strip = append(d.strip, rx)
	}
	return d, nil
}

// DefaultDeriver returns a Deriver using DefaultStripPatterns.
func DefaultDeriver() *Deriver {
	d, err := NewDeriver(DefaultStripPatterns)
	if err != nil {
		panic(err)
	}
	return d
}

// Title returns the human part of name: the extension and every strip
// pattern removed, original casing kept.
func (d *Deriver) Title(name string) string {
	return d.clean(strings.TrimSuffix(name, path.Ext(name)))
}

// Derive returns the logical id for a file name, or "" when nothing
// usable remains.
func (d *Deriver) Derive(name string) string {
	if id := Slugify(d.Title(name)); id != "" {
		return id
	}
	return Slugify(strings.TrimSuffix(name, path.Ext(name)))
}

// DeriveDir returns the logical id for a directory name. Directory names
// keep dots, so no extension is stripped.
func (d *Deriver) DeriveDir(name string) string {
	if id := Slugify(d.clean(name)); id != "" {
		return id
	}
	return Slugify(name)
}

// clean applies the strip patterns in order. A pattern that would erase
// the whole stem is skipped.
func (d *Deriver) clean(stem string) string {
	stem = strings.TrimSpace(stem)
	for _, rx := range d.strip {
		if stripped := strings.TrimSpace(rx.ReplaceAllString(stem, "")); stripped != "" {
			stem = stripped
		}
	}
	return stem
}

// Slugify lower-cases s and collapses every run of characters that are
// not letters or digits into a single underscore.
//
//	"Task Master"        → "task_master"
//	"AI / ML  notes (v2)" → "ai_ml_notes_v2"
func Slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}
