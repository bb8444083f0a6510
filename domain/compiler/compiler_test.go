package compiler

import (
	"testing"

	"cnlgraph/domain/graph"
	"cnlgraph/domain/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileEndToEnd(t *testing.T) {
	snap := testSnapshot(t)
	src := "```graph-description\nPets and food.\n```\n" +
		"# Rex [Dog]\n" +
		"```description\nA good dog.\n```\n" +
		"has age: 5;\n" +
		"<eats> Kibble;\n" +
		"# Kibble [Food]\n"

	res := Compile("g1", src, Options{Strict: true}, snap, nil, nil)
	require.Empty(t, res.Errors)
	assert.False(t, res.Failed())
	assert.Equal(t, "Pets and food.", res.Graph.Description)

	creates, updates, deletes := res.Changes.Counts()
	assert.Equal(t, 4, creates)
	assert.Zero(t, updates)
	assert.Zero(t, deletes)
}

func TestCompileIdempotence(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Rex [Dog]\nhas age: 5;\n<eats> Kibble;\n# Kibble [Food]\n"

	first := Compile("g1", src, Options{Strict: true}, snap, nil, nil)
	require.Empty(t, first.Errors)

	second := Compile("g1", src, Options{Strict: true}, snap, first.Graph, nil)
	require.Empty(t, second.Errors)
	assert.True(t, second.Changes.Empty(), "recompiling identical text must yield an empty change list")
}

func TestCompileStrictModeAbortsOnAnyError(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Rex [Dog]\nhas age: five;\n# Kibble [Food]\n"

	res := Compile("g1", src, Options{Strict: true}, snap, nil, nil)
	assert.True(t, res.Failed())
	assert.Empty(t, res.Changes, "strict mode applies nothing")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrInvalidAttributeValue, res.Errors[0].Kind)
}

func TestCompileLenientModeCompilesValidDeclarations(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Rex [Dog]\nhas age: five;\nhas vaccinated: true;\n"

	res := Compile("g1", src, Options{Strict: false}, snap, nil, nil)
	assert.False(t, res.Failed())
	require.Len(t, res.Errors, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Line)

	// The valid attribute and the node itself still compile and diff.
	creates, _, _ := res.Changes.Counts()
	assert.Equal(t, 2, creates)
}

func TestCompileCyclicSchemaIsFatalInBothModes(t *testing.T) {
	cyclic, err := schema.NewSnapshot(
		[]schema.NodeType{
			{Name: "A", ParentTypes: []string{"B"}},
			{Name: "B", ParentTypes: []string{"A"}},
		},
		nil, nil, nil,
	)
	require.Nil(t, cyclic)
	require.Error(t, err)

	// The service layer surfaces the snapshot construction failure as a
	// CyclicTypeHierarchy compile error; Fatal() makes it abort in
	// either mode.
	assert.True(t, ErrCyclicTypeHierarchy.Fatal())
}

func TestCompileDuplicateIdentityIsFatalInLenientMode(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Rex [Dog]\nhas age: 5;\nhas age: 6;\n"

	res := Compile("g1", src, Options{Strict: false}, snap, nil, nil)
	assert.True(t, res.Failed())
	assert.Empty(t, res.Changes)
}

func TestCompileSyntaxErrorCarriesLineNumber(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Rex [Dog]\nnot a valid line\nhas age: 5;\n"

	res := Compile("g1", src, Options{Strict: false}, snap, nil, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrSyntax, res.Errors[0].Kind)
	assert.Equal(t, 2, res.Errors[0].Line)

	// The syntax error is fatal to its line only.
	creates, _, _ := res.Changes.Counts()
	assert.Equal(t, 2, creates)
}

func TestCompileMorphEditLeavesSiblingMorphsIntact(t *testing.T) {
	snap := testSnapshot(t)
	full := "# Rex [Dog]\n" +
		"## as a puppy\nhas weight: 2.5;\n" +
		"## as an adult\nhas weight: 30.0;\n"
	prior := Compile("g1", full, Options{Strict: true}, snap, nil, nil)
	require.Empty(t, prior.Errors)

	edit := "# Rex [Dog]\n## as a puppy\nhas weight: 3.0;\n"
	res := Compile("g1", edit, Options{Strict: true}, snap, prior.Graph, nil)
	require.Empty(t, res.Errors)

	for _, c := range res.Changes {
		assert.NotEqual(t, graph.OpDelete, c.Op)
	}
}

type fakeIndex map[string]bool

func (f fakeIndex) HasNode(name string) bool { return f[name] }

func TestCompileIndexInformsTargetError(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Rex [Dog]\n<likes> Ball;\n"

	res := Compile("g1", src, Options{}, snap, nil, fakeIndex{"Ball": true})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrUnknownNodeTarget, res.Errors[0].Kind)
	assert.Contains(t, res.Errors[0].Message, "another graph")
}
