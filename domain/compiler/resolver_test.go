package compiler

import (
	"testing"

	"cnlgraph/domain/cnl"
	"cnlgraph/domain/graph"
	"cnlgraph/domain/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *schema.Snapshot {
	t.Helper()
	snap, err := schema.NewSnapshot(
		[]schema.NodeType{
			{Name: "Thing"},
			{Name: "Animal", ParentTypes: []string{"Thing"}},
			{Name: "Dog", ParentTypes: []string{"Animal"}},
			{Name: "Food", ParentTypes: []string{"Thing"}},
			{Name: "Person", ParentTypes: []string{"Thing"}},
			{Name: "Rectangle", ParentTypes: []string{"Thing"}},
		},
		[]schema.RelationType{
			{Name: "eats", Domain: []string{"Animal"}, Range: []string{"Food"}},
			{Name: "knows", Symmetric: true},
			{Name: "likes"},
		},
		[]schema.AttributeType{
			{Name: "age", ValueType: schema.ValueInteger},
			{Name: "weight", ValueType: schema.ValueFloat},
			{Name: "name", ValueType: schema.ValueString},
			{Name: "born", ValueType: schema.ValueDate},
			{Name: "vaccinated", ValueType: schema.ValueBoolean},
			{Name: "iq", ValueType: schema.ValueInteger, Scope: []string{"Person"}},
			{Name: "width", ValueType: schema.ValueFloat, Scope: []string{"Rectangle"}},
			{Name: "height", ValueType: schema.ValueFloat, Scope: []string{"Rectangle"}},
		},
		[]schema.FunctionType{
			{Name: "area", Expression: "width * height", Scope: []string{"Rectangle"}},
			{Name: "halfArea", Expression: "area / 2", Scope: []string{"Rectangle"}},
		},
	)
	require.NoError(t, err)
	return snap
}

func resolve(t *testing.T, snap *schema.Snapshot, src string, opts Options, prior *graph.Graph) (*graph.Graph, []*FunctionInstance, ErrorList) {
	t.Helper()
	parsed := cnl.Parse(src)
	g, fns, _, errs := NewResolver(snap, prior, nil, opts).Resolve("g1", parsed)
	return g, fns, errs
}

func kinds(errs ErrorList) []ErrorKind {
	out := make([]ErrorKind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

func TestResolveTypedNode(t *testing.T) {
	g, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\n", Options{}, nil)
	require.Empty(t, errs)
	require.Len(t, g.Nodes, 1)

	node := g.Nodes[0]
	assert.Equal(t, "Rex", node.BaseName)
	assert.Equal(t, "Dog", node.Role)
	assert.Contains(t, node.ParentTypes, "Animal")
	assert.Contains(t, node.ParentTypes, "Thing")
}

func TestResolveUnknownNodeType(t *testing.T) {
	g, _, errs := resolve(t, testSnapshot(t), "# Rex [Wolf]\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownNodeType, errs[0].Kind)
	assert.Equal(t, 1, errs[0].Line)
	assert.Empty(t, g.Nodes)
}

func TestResolveRelationDomainRange(t *testing.T) {
	snap := testSnapshot(t)

	// Accepted: Dog is an Animal, Bone is Food.
	g, _, errs := resolve(t, snap, "# Rex [Dog]\n<eats> Bone;\n# Bone [Food]\n", Options{}, nil)
	require.Empty(t, errs)
	require.Len(t, g.Relations, 1)

	// Declaration order must not matter.
	g, _, errs = resolve(t, snap, "# Bone [Food]\n# Rex [Dog]\n<eats> Bone;\n", Options{}, nil)
	require.Empty(t, errs)
	require.Len(t, g.Relations, 1)

	// Rejected: a Person is not an Animal.
	_, _, errs = resolve(t, snap, "# Ada [Person]\n<eats> Bone;\n# Bone [Food]\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDomainRangeViolation, errs[0].Kind)
	assert.Contains(t, errs[0].Message, "Animal")

	// Rejected: target out of range.
	_, _, errs = resolve(t, snap, "# Rex [Dog]\n<eats> Ada;\n# Ada [Person]\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDomainRangeViolation, errs[0].Kind)
}

func TestResolveUnknownRelationType(t *testing.T) {
	_, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\n<chases> Rex;\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownRelationType, errs[0].Kind)
	assert.Equal(t, 2, errs[0].Line)
}

func TestResolveUndeclaredTargetRejectedByDefault(t *testing.T) {
	g, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\n<eats> Bone;\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownNodeTarget, errs[0].Kind)
	assert.Len(t, g.Nodes, 1)
}

func TestResolveImplicitTargetCreatesStub(t *testing.T) {
	g, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\n<likes> Ball;\n", Options{AllowImplicitTargets: true}, nil)
	require.Empty(t, errs)
	require.Len(t, g.Nodes, 2)

	stub, ok := g.NodeByBaseName("Ball")
	require.True(t, ok)
	assert.Empty(t, stub.Role)
	require.Len(t, g.Relations, 1)
	assert.Equal(t, stub.ID, g.Relations[0].TargetID)
}

func TestResolveTargetFromPriorSnapshot(t *testing.T) {
	prior := graph.NewGraph("g1")
	bone := &graph.Node{
		ID:          graph.DeriveNodeID("g1", "Bone", "Food"),
		BaseName:    "Bone",
		Role:        "Food",
		ParentTypes: []string{"Food", "Thing"},
	}
	bone.EnsureMorph(graph.DefaultMorphName)
	prior.Nodes = append(prior.Nodes, bone)

	g, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\n<eats> Bone;\n", Options{}, prior)
	require.Empty(t, errs)
	require.Len(t, g.Relations, 1)
	assert.Equal(t, bone.ID, g.Relations[0].TargetID)
	// The prior-only target is not re-declared by this submission.
	assert.Len(t, g.Nodes, 1)
}

func TestResolveSymmetricRelationMaterializesInverse(t *testing.T) {
	src := "# Ada [Person]\n<knows> Bob;\n# Bob [Person]\n"
	g, _, errs := resolve(t, testSnapshot(t), src, Options{}, nil)
	require.Empty(t, errs)
	require.Len(t, g.Relations, 2)

	ada, _ := g.NodeByBaseName("Ada")
	bob, _ := g.NodeByBaseName("Bob")
	var forward, inverse bool
	for _, r := range g.Relations {
		if r.SourceID == ada.ID && r.TargetID == bob.ID {
			forward = true
		}
		if r.SourceID == bob.ID && r.TargetID == ada.ID {
			inverse = true
		}
	}
	assert.True(t, forward)
	assert.True(t, inverse)
}

func TestResolveAttributeValues(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Rex [Dog]\n" +
		"has age: 5;\n" +
		"has weight: 30.5 *kg*;\n" +
		"has name: Rex the Third;\n" +
		"has born: 2020-03-14;\n" +
		"has vaccinated: true;\n"

	g, _, errs := resolve(t, snap, src, Options{}, nil)
	require.Empty(t, errs)
	require.Len(t, g.Attributes, 5)

	byName := make(map[string]*graph.Attribute)
	for _, a := range g.Attributes {
		byName[a.Name] = a
	}
	assert.Equal(t, int64(5), byName["age"].Value.Int)
	assert.Equal(t, 30.5, byName["weight"].Value.Float)
	assert.Equal(t, "kg", byName["weight"].Unit)
	assert.Equal(t, "Rex the Third", byName["name"].Value.Raw)
	assert.True(t, byName["vaccinated"].Value.Bool)
}

func TestResolveInvalidAttributeValue(t *testing.T) {
	_, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\nhas age: five;\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidAttributeValue, errs[0].Kind)
	assert.Contains(t, errs[0].Message, "five")
	assert.Equal(t, 2, errs[0].Line)
}

func TestResolveUnknownAttributeType(t *testing.T) {
	_, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\nhas wingspan: 3;\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownAttributeType, errs[0].Kind)
}

func TestResolveAttributeOutOfScope(t *testing.T) {
	_, _, errs := resolve(t, testSnapshot(t), "# Rex [Dog]\nhas iq: 120;\n", Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrAttributeOutOfScope, errs[0].Kind)
}

func TestResolveFunctionsInScope(t *testing.T) {
	src := "# Door [Rectangle]\nhas width: 0.9;\nhas height: 2.1;\n"
	_, fns, errs := resolve(t, testSnapshot(t), src, Options{}, nil)
	require.Empty(t, errs)
	require.Len(t, fns, 2)
	assert.Equal(t, "area", fns[0].Fn.Name)
	assert.Equal(t, "halfArea", fns[1].Fn.Name)
}

func TestResolveFunctionsOnceForSplitNodeBlock(t *testing.T) {
	// A node continued in a later block is still one node; its in-scope
	// functions must not be instantiated per declaration.
	src := "# Door [Rectangle]\nhas width: 0.9;\n\n# Wall [Thing]\n\n# Door [Rectangle]\nhas height: 2.1;\n"
	g, fns, errs := resolve(t, testSnapshot(t), src, Options{}, nil)
	require.Empty(t, errs)
	require.Len(t, g.Nodes, 2)
	require.Len(t, fns, 2)
	assert.Equal(t, "area", fns[0].Fn.Name)
	assert.Equal(t, "halfArea", fns[1].Fn.Name)
}

func TestResolveUnknownAttributeReference(t *testing.T) {
	// width is missing, so the area function cannot bind it.
	src := "# Door [Rectangle]\nhas height: 2.1;\n"
	_, fns, errs := resolve(t, testSnapshot(t), src, Options{}, nil)
	require.NotEmpty(t, errs)
	assert.Contains(t, kinds(errs), ErrUnknownAttributeReference)
	// halfArea still resolves: it references the area function itself.
	require.Len(t, fns, 1)
	assert.Equal(t, "halfArea", fns[0].Fn.Name)
}

func TestResolveDuplicateAttributeIdentityIsFatal(t *testing.T) {
	src := "# Rex [Dog]\nhas age: 5;\nhas age: 6;\n"
	_, _, errs := resolve(t, testSnapshot(t), src, Options{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateIdentity, errs[0].Kind)
	assert.True(t, errs.HasFatal())
}

func TestResolveIdenticalRedeclarationDedupes(t *testing.T) {
	src := "# Rex [Dog]\nhas age: 5;\nhas age: 5;\n"
	g, _, errs := resolve(t, testSnapshot(t), src, Options{}, nil)
	require.Empty(t, errs)
	assert.Len(t, g.Attributes, 1)
}

func TestResolveMorphScopedDeclarations(t *testing.T) {
	src := "# Rex [Dog]\n" +
		"has age: 5;\n" +
		"## as a puppy\n" +
		"has weight: 2.5;\n"

	g, _, errs := resolve(t, testSnapshot(t), src, Options{}, nil)
	require.Empty(t, errs)

	node := g.Nodes[0]
	def, _ := node.Morph(graph.DefaultMorphName)
	puppy, ok := node.Morph("as a puppy")
	require.True(t, ok)

	byName := make(map[string]*graph.Attribute)
	for _, a := range g.Attributes {
		byName[a.Name] = a
	}
	assert.Equal(t, []graph.MorphID{def.ID}, byName["age"].MorphIDs)
	assert.Equal(t, []graph.MorphID{puppy.ID}, byName["weight"].MorphIDs)
}
