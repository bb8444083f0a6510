package handlers

import (
	"context"
	"testing"
	"time"

	"cnlgraph/application/commands"
	"cnlgraph/domain/compiler"
	"cnlgraph/domain/schema"
	"cnlgraph/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSnapshot(t *testing.T) *schema.Snapshot {
	t.Helper()
	snap, err := schema.NewSnapshot(
		[]schema.NodeType{
			{Name: "Thing"},
			{Name: "Person", ParentTypes: []string{"Thing"}},
		},
		[]schema.RelationType{
			{Name: "knows", Symmetric: true},
		},
		[]schema.AttributeType{
			{Name: "age", ValueType: schema.ValueInteger},
		},
		nil,
	)
	require.NoError(t, err)
	return snap
}

type fixture struct {
	orchestrator *CompileOrchestrator
	graphStore   *memory.GraphStore
	schemaStore  *memory.SchemaStore
	lock         *memory.CompileLock
	eventBus     *memory.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		graphStore:  memory.NewGraphStore(),
		schemaStore: memory.NewSchemaStore(testSnapshot(t)),
		lock:        memory.NewCompileLock(),
		eventBus:    memory.NewEventBus(),
	}
	f.orchestrator = NewCompileOrchestrator(
		f.schemaStore,
		f.graphStore,
		f.lock,
		f.eventBus,
		nil,
		nil,
		zap.NewNop(),
		time.Second,
	)
	return f
}

func compileCmd(text string, strict bool) commands.CompileGraphCommand {
	return commands.CompileGraphCommand{
		GraphID: "g1",
		UserID:  "u1",
		Text:    text,
		Strict:  strict,
	}
}

func TestCompileAppliesAndPublishes(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.orchestrator.Handle(context.Background(), compileCmd(
		"# Alice [Person]\nhas age: 30;\n<knows> Bob;\n\n# Bob [Person]\n", false))
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	assert.Empty(t, outcome.Errors)
	assert.Greater(t, outcome.Creates, 0)

	stored, err := f.graphStore.LoadSnapshot(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 2)
	// knows is symmetric, so the inverse edge is materialized too.
	assert.Len(t, stored.Relations, 2)
	assert.Len(t, stored.Attributes, 1)

	events := f.eventBus.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "g1", events[0].GraphID)
	assert.Equal(t, "u1", events[0].UserID)
	assert.Equal(t, outcome.Creates, events[0].Creates)
}

func TestCompileRecompileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	text := "# Alice [Person]\nhas age: 30;\n"

	first, err := f.orchestrator.Handle(context.Background(), compileCmd(text, false))
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := f.orchestrator.Handle(context.Background(), compileCmd(text, false))
	require.NoError(t, err)
	require.True(t, second.Applied)
	assert.Zero(t, second.Creates)
	assert.Zero(t, second.Updates)
	assert.Zero(t, second.Deletes)
}

func TestCompileStrictRejectsWithoutApplying(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.orchestrator.Handle(context.Background(), compileCmd(
		"# Alice [Person]\nhas age: 30;\n\n# Ghost [Phantom]\n", true))
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	require.NotEmpty(t, outcome.Errors)
	assert.Equal(t, compiler.ErrUnknownNodeType, outcome.Errors[0].Kind)

	stored, err := f.graphStore.LoadSnapshot(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, stored.Nodes)

	assert.Empty(t, f.eventBus.Events())
}

func TestCompileLenientAppliesValidDeclarations(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.orchestrator.Handle(context.Background(), compileCmd(
		"# Alice [Person]\nhas age: 30;\n\n# Ghost [Phantom]\n", false))
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.NotEmpty(t, outcome.Errors)
	assert.NotEmpty(t, outcome.Skipped)

	stored, err := f.graphStore.LoadSnapshot(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 1)
	assert.Equal(t, "Alice", stored.Nodes[0].BaseName)
}

func TestCompileLockContention(t *testing.T) {
	f := newFixture(t)

	lease, err := f.lock.Acquire(context.Background(), "g1", "other", time.Minute)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	_, err = f.orchestrator.Handle(context.Background(), compileCmd("# Alice [Person]\n", false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another submission")
}

func TestCompileCyclicSchemaIsFatal(t *testing.T) {
	f := newFixture(t)
	f.schemaStore.SetError(&schema.CycleError{Cycle: []string{"A", "B", "A"}})

	outcome, err := f.orchestrator.Handle(context.Background(), compileCmd("# Alice [Person]\n", false))
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, compiler.ErrCyclicTypeHierarchy, outcome.Errors[0].Kind)
}

func TestCompileMorphScopedDelete(t *testing.T) {
	f := newFixture(t)

	first, err := f.orchestrator.Handle(context.Background(), compileCmd(
		"# Alice [Person]\nhas age: 30;\n<knows> Bob;\n\n# Bob [Person]\n", false))
	require.NoError(t, err)
	require.True(t, first.Applied)

	// Resubmitting Alice without the relation drops it from her default
	// morph; the materialized inverse on Bob goes with it.
	second, err := f.orchestrator.Handle(context.Background(), compileCmd(
		"# Alice [Person]\nhas age: 30;\n\n# Bob [Person]\n", false))
	require.NoError(t, err)
	require.True(t, second.Applied)
	assert.Greater(t, second.Deletes, 0)

	stored, err := f.graphStore.LoadSnapshot(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, stored.Relations)
	assert.Len(t, stored.Attributes, 1)
}
