// Package store defines the aggregate persistence interface. Each subsystem
// (run, checkpoint, branch, session) defines its own store interface. The
// composite Store composes them all. Backends: Bun/PostgreSQL and Memory.
package store

import (
	"context"

	"github.com/xraph/continuum/branch"
	"github.com/xraph/continuum/checkpoint"
	"github.com/xraph/continuum/run"
	"github.com/xraph/continuum/session"
)

// Store is the aggregate persistence interface. Each subsystem store is a
// composable interface; a single backend implements all of them. A durable
// backend must preserve the core invariants across a process restart:
// checkpoint indexes stay monotonic per run and a merged branch never
// becomes active again.
type Store interface {
	run.Store
	checkpoint.Store
	branch.Store
	session.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
