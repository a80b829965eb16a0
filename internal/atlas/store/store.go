// Package store holds the persistence surfaces behind the atlas service: a
// read-through record cache (in-memory or Redis) and an append-only
// Postgres archive of provider snapshots. Both are optional collaborators;
// the service degrades to live lookups when neither is configured.
package store

import (
	"errors"
	"fmt"

	"corpatlas/contracts/company"
)

// ErrNotFound reports a cache or archive miss.
var ErrNotFound = errors.New("store: record not found")

// Key identifies a company across cache and archive. It is always built
// from a classified identifier, never from raw caller input, so equivalent
// spellings of the same identifier share one entry.
type Key struct {
	CountryCode string
	Type        company.IdentifierType
	Value       string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.CountryCode, k.Type, k.Value)
}
