package resolver

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/linkmap/internal/address"
)

// ErrInvalidArgument marks a request that is well-formed JSON but
// semantically unusable (empty id, empty path, empty query).
var ErrInvalidArgument = errors.New("invalid argument")

// Error kinds reported to tool callers.
const (
	KindParse           = "parse_error"
	KindNotFound        = "not_found"
	KindConflict        = "conflict"
	KindInvalidArgument = "invalid_argument"
	KindInternal        = "internal"
)

// NotFoundError reports a well-formed address (or path) with no mapping.
type NotFoundError struct {
	Type address.DocumentType
	ID   string
	Path string
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("no mapping for path %q", e.Path)
	}
	return fmt.Sprintf("no mapping for %s:%s", e.Type, e.ID)
}

// ConflictError reports a registration refused because the key is taken.
type ConflictError struct {
	Type         address.DocumentType
	ID           string
	ExistingPath string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s:%s is already mapped to %q", e.Type, e.ID, e.ExistingPath)
}

// Kind classifies err into one of the stable kind strings.
func Kind(err error) string {
	var (
		parseErr    *address.ParseError
		notFound    *NotFoundError
		conflictErr *ConflictError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &conflictErr):
		return KindConflict
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
