// Package store provides SQLite-backed durable storage for gestion.
package store

import (
	"context"

	"github.com/me/gestion/internal/session"
)

// Store is the persistence layer shared by every API origin.
type Store interface {
	// Scoped returns a session backend whose keys are isolated to origin.
	Scoped(origin string) session.Backend

	// Origins lists every origin that currently holds at least one entry.
	Origins(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
