package journal

import "database/sql"

// DB exposes the internal *sql.DB for assertions in journal_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}
