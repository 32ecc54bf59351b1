package ident

import "github.com/google/uuid"

// New returns a time-ordered unique ID (UUIDv7). IDs generated later sort
// lexicographically after earlier ones, which keeps ledger and payment rows
// naturally ordered by creation without a persistence-framework hook.
func New() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the entropy source does; fall back to v4
		// rather than propagating an error through every constructor.
		return uuid.New()
	}
	return id
}
