// Package auditlog contains the append-only log of the operations run over appointments, and the
// stores it can be kept in.
package auditlog

import (
	"context"
)

// Store keeps the audit entries. Entries are never updated or deleted.
type Store interface {

	// Append adds a new entry.
	Append(ctx context.Context, entry Entry) error

	// List lists the latest entries, newest first, optionally only the ones with the given action.
	List(ctx context.Context, action string, limit int) ([]*Entry, error)
}
