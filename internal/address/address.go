// Package address parses and formats abstract document addresses.
//
// Two surface forms are accepted:
//
//	abstract://standard:task_master   (full form)
//	standard:task_master              (short form)
//
// The document type is matched case-insensitively. Everything after the
// first colon is the logical id, so ids may themselves contain colons.
package address

import (
	"fmt"
	"strings"
)

// Scheme is the prefix of the full address form.
const Scheme = "abstract://"

// --- Document type enum ---

// DocumentType selects the address namespace and discovery root of a mapping.
type DocumentType string

const (
	TypeStandard  DocumentType = "standard"
	TypeTask      DocumentType = "task"
	TypeIncident  DocumentType = "incident"
	TypeDirectory DocumentType = "directory"
)

// Types lists every known document type in canonical order.
var Types = []DocumentType{TypeStandard, TypeTask, TypeIncident, TypeDirectory}

var validTypes = map[DocumentType]bool{
	TypeStandard:  true,
	TypeTask:      true,
	TypeIncident:  true,
	TypeDirectory: true,
}

// ParseType normalizes s and returns the matching DocumentType.
func ParseType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return "", &ParseError{Input: s, Reason: ReasonMalformed, Detail: "empty document type"}
	}
	if !validTypes[t] {
		return "", &ParseError{Input: s, Reason: ReasonUnknownType, Detail: fmt.Sprintf("unknown document type %q", s)}
	}
	return t, nil
}

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	return validTypes[t]
}

// --- Errors ---

// Reason classifies a ParseError.
type Reason string

const (
	ReasonMalformed   Reason = "malformed"
	ReasonUnknownType Reason = "unknown_type"
)

// ParseError reports an address that could not be parsed.
type ParseError struct {
	Input  string
	Reason Reason
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("parse address %q: %s: %s", e.Input, e.Reason, e.Detail)
	}
	return fmt.Sprintf("parse address %q: %s", e.Input, e.Reason)
}

// --- Address ---

// Address is a parsed (type, logical id) pair.
type Address struct {
	Type DocumentType
	ID   string
}

// String returns the full abstract:// form.
func (a Address) String() string {
	return Format(a.Type, a.ID)
}

// Short returns the <type>:<id> form.
func (a Address) Short() string {
	return string(a.Type) + ":" + a.ID
}

// Format serializes a type and id into the full address form.
func Format(t DocumentType, id string) string {
	return Scheme + string(t) + ":" + id
}

// Parse parses either address form.
func Parse(s string) (Address, error) {
	body := s
	if hasScheme(body) {
		body = body[len(Scheme):]
	}

	typ, id, ok := strings.Cut(body, ":")
	if !ok {
		return Address{}, &ParseError{Input: s, Reason: ReasonMalformed, Detail: "missing ':' separator"}
	}
	if strings.TrimSpace(typ) == "" {
		return Address{}, &ParseError{Input: s, Reason: ReasonMalformed, Detail: "empty document type"}
	}
	if id == "" {
		return Address{}, &ParseError{Input: s, Reason: ReasonMalformed, Detail: "empty logical id"}
	}

	t, err := ParseType(typ)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Input = s
		}
		return Address{}, err
	}
	return Address{Type: t, ID: id}, nil
}

// LooksLikeAddress reports whether s carries the abstract:// scheme or
// starts with a known "<type>:" prefix. It does not validate the id.
func LooksLikeAddress(s string) bool {
	if hasScheme(s) {
		return true
	}
	typ, _, ok := strings.Cut(s, ":")
	if !ok {
		return false
	}
	return validTypes[DocumentType(strings.ToLower(typ))]
}

func hasScheme(s string) bool {
	return len(s) >= len(Scheme) && strings.EqualFold(s[:len(Scheme)], Scheme)
}
