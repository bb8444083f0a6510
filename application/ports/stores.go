package ports

import (
	"context"
	"time"

	"cnlgraph/domain/graph"
	"cnlgraph/domain/schema"
)

// SchemaStore loads the schema definitions the compiler validates
// against. The compiler itself never mutates schema; CRUD belongs to an
// external schema manager. LoadSnapshot pins an immutable snapshot so
// in-flight compilations are isolated from concurrent schema edits.
type SchemaStore interface {
	LoadSnapshot(ctx context.Context) (*schema.Snapshot, error)
}

// GraphStore persists graph snapshots and applies compiled change
// lists. The compiler reads the prior snapshot and hands back a delta;
// it never touches the storage format.
type GraphStore interface {
	// LoadSnapshot returns the stored graph for graphID, or an empty
	// graph when none exists yet.
	LoadSnapshot(ctx context.Context, graphID string) (*graph.Graph, error)

	// ApplyChangeList applies an ordered change list atomically enough
	// that a failed apply leaves no partial morph scope behind.
	ApplyChangeList(ctx context.Context, graphID string, changes graph.ChangeList) error

	// ListGraphIDs returns the ids of all stored graphs.
	ListGraphIDs(ctx context.Context) ([]string, error)

	// LoadNodeNames returns the base names of all nodes across all
	// graphs, backing the read-only cross-graph index handed to the
	// compiler.
	LoadNodeNames(ctx context.Context) (map[string]bool, error)
}

// Lease is a held per-graph compile lock.
type Lease interface {
	Release(ctx context.Context) error
}

// CompileLock serializes submissions per graph id. The lock is held
// from before the prior snapshot is read until the computed delta is
// durably applied, so two concurrent submissions can never interleave
// diffs against a stale snapshot.
type CompileLock interface {
	Acquire(ctx context.Context, graphID, owner string, ttl time.Duration) (Lease, error)
}

// CompiledEvent describes one applied compilation.
type CompiledEvent struct {
	GraphID   string `json:"graph_id"`
	UserID    string `json:"user_id"`
	Creates   int    `json:"creates"`
	Updates   int    `json:"updates"`
	Deletes   int    `json:"deletes"`
	Derived   int    `json:"derived"`
	Timestamp string `json:"timestamp"`
}

// EventBus publishes compile lifecycle events to interested consumers.
type EventBus interface {
	PublishCompiled(ctx context.Context, event CompiledEvent) error
}
