// Package memory provides in-process implementations of the store and
// lock ports for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cnlgraph/application/ports"
	"cnlgraph/domain/graph"
	"cnlgraph/domain/schema"
)

// SchemaStore serves a fixed snapshot. Swap the snapshot with
// SetSnapshot to simulate a schema edit between compilations.
type SchemaStore struct {
	mu   sync.RWMutex
	snap *schema.Snapshot
	err  error
}

// NewSchemaStore creates a schema store pinned to snap.
func NewSchemaStore(snap *schema.Snapshot) *SchemaStore {
	return &SchemaStore{snap: snap}
}

// SetSnapshot replaces the served snapshot.
func (s *SchemaStore) SetSnapshot(snap *schema.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.err = nil
}

// SetError makes LoadSnapshot fail, for exercising store failures.
func (s *SchemaStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// LoadSnapshot returns the pinned snapshot.
func (s *SchemaStore) LoadSnapshot(_ context.Context) (*schema.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

// GraphStore keeps graph snapshots in process memory.
type GraphStore struct {
	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

// NewGraphStore creates an empty in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{graphs: make(map[string]*graph.Graph)}
}

// LoadSnapshot returns a deep copy of the stored graph, or an empty
// graph when the id is unknown. Copying keeps callers from mutating
// stored state through shared pointers.
func (s *GraphStore) LoadSnapshot(_ context.Context, graphID string) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.graphs[graphID]
	if !ok {
		return graph.NewGraph(graphID), nil
	}
	return copyGraph(stored), nil
}

// ApplyChangeList applies the ordered change list to the stored graph.
func (s *GraphStore) ApplyChangeList(_ context.Context, graphID string, changes graph.ChangeList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.graphs[graphID]
	if !ok {
		g = graph.NewGraph(graphID)
		s.graphs[graphID] = g
	}

	for _, c := range changes {
		switch c.Kind {
		case graph.KindNode:
			applyNode(g, c)
		case graph.KindRelation:
			applyRelation(g, c)
		case graph.KindAttribute:
			applyAttribute(g, c)
		default:
			return fmt.Errorf("unknown change kind %q", c.Kind)
		}
	}
	return nil
}

// ListGraphIDs returns the stored graph ids, sorted.
func (s *GraphStore) ListGraphIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadNodeNames returns the base names of all nodes across all graphs.
func (s *GraphStore) LoadNodeNames(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]bool)
	for _, g := range s.graphs {
		for _, n := range g.Nodes {
			names[n.BaseName] = true
		}
	}
	return names, nil
}

func applyNode(g *graph.Graph, c graph.Change) {
	switch c.Op {
	case graph.OpDelete:
		for i, n := range g.Nodes {
			if n.ID == c.Node.ID {
				g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)
				return
			}
		}
	default:
		node := *c.Node
		for i, n := range g.Nodes {
			if n.ID == node.ID {
				g.Nodes[i] = &node
				return
			}
		}
		g.Nodes = append(g.Nodes, &node)
	}
}

func applyRelation(g *graph.Graph, c graph.Change) {
	switch c.Op {
	case graph.OpDelete:
		for i, r := range g.Relations {
			if r.ID == c.Relation.ID {
				g.Relations = append(g.Relations[:i], g.Relations[i+1:]...)
				return
			}
		}
	default:
		rel := *c.Relation
		for i, r := range g.Relations {
			if r.ID == rel.ID {
				g.Relations[i] = &rel
				return
			}
		}
		g.Relations = append(g.Relations, &rel)
	}
}

func applyAttribute(g *graph.Graph, c graph.Change) {
	switch c.Op {
	case graph.OpDelete:
		for i, a := range g.Attributes {
			if a.ID == c.Attribute.ID {
				g.Attributes = append(g.Attributes[:i], g.Attributes[i+1:]...)
				return
			}
		}
	default:
		attr := *c.Attribute
		for i, a := range g.Attributes {
			if a.ID == attr.ID {
				g.Attributes[i] = &attr
				return
			}
		}
		g.Attributes = append(g.Attributes, &attr)
	}
}

func copyGraph(g *graph.Graph) *graph.Graph {
	out := graph.NewGraph(g.ID)
	out.Description = g.Description
	for _, n := range g.Nodes {
		node := *n
		node.Morphs = append([]graph.Morph(nil), n.Morphs...)
		node.ParentTypes = append([]string(nil), n.ParentTypes...)
		out.Nodes = append(out.Nodes, &node)
	}
	for _, r := range g.Relations {
		rel := *r
		rel.MorphIDs = append([]graph.MorphID(nil), r.MorphIDs...)
		out.Relations = append(out.Relations, &rel)
	}
	for _, a := range g.Attributes {
		attr := *a
		attr.MorphIDs = append([]graph.MorphID(nil), a.MorphIDs...)
		out.Attributes = append(out.Attributes, &attr)
	}
	return out
}

// CompileLock serializes compilations per graph with in-process
// mutexes. Acquire fails fast instead of blocking, matching the
// distributed implementation's contract.
type CompileLock struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewCompileLock creates an in-process compile lock.
func NewCompileLock() *CompileLock {
	return &CompileLock{held: make(map[string]time.Time)}
}

// Acquire takes the per-graph lock, failing when a live lease holds it.
func (l *CompileLock) Acquire(_ context.Context, graphID, _ string, ttl time.Duration) (ports.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[graphID]; ok && time.Now().Before(expiry) {
		return nil, fmt.Errorf("compile lock already held for graph %s", graphID)
	}
	l.held[graphID] = time.Now().Add(ttl)
	return &memLease{lock: l, graphID: graphID}, nil
}

type memLease struct {
	lock    *CompileLock
	graphID string
	once    sync.Once
}

// Release frees the per-graph lock. Releasing twice is a no-op.
func (le *memLease) Release(_ context.Context) error {
	le.once.Do(func() {
		le.lock.mu.Lock()
		defer le.lock.mu.Unlock()
		delete(le.lock.held, le.graphID)
	})
	return nil
}

// EventBus collects published events, for tests and local runs.
type EventBus struct {
	mu     sync.Mutex
	events []ports.CompiledEvent
}

// NewEventBus creates a collecting event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// PublishCompiled records the event.
func (b *EventBus) PublishCompiled(_ context.Context, event ports.CompiledEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (b *EventBus) Events() []ports.CompiledEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ports.CompiledEvent(nil), b.events...)
}
