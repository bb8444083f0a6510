package compiler

import (
	"testing"

	"cnlgraph/domain/graph"
	"cnlgraph/domain/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluate(t *testing.T, snap *schema.Snapshot, src string, prior *graph.Graph) (*graph.Graph, []*graph.Attribute, ErrorList) {
	t.Helper()
	g, fns, errs := resolve(t, snap, src, Options{}, prior)
	require.Empty(t, errs)
	derived, evalErrs := NewEvaluator(prior).Evaluate(g, fns)
	return g, derived, evalErrs
}

func TestEvaluateDerivedAttributes(t *testing.T) {
	src := "# Door [Rectangle]\nhas width: 2.0;\nhas height: 3.0;\n"
	g, derived, errs := evaluate(t, testSnapshot(t), src, nil)
	require.Empty(t, errs)
	require.Len(t, derived, 2)

	byName := make(map[string]*graph.Attribute)
	for _, a := range derived {
		byName[a.Name] = a
	}
	require.Contains(t, byName, "area")
	require.Contains(t, byName, "halfArea")
	assert.Equal(t, 6.0, byName["area"].Value.Float)
	assert.Equal(t, 3.0, byName["halfArea"].Value.Float)
	assert.True(t, byName["area"].IsDerived)

	// Derived attributes join the compiled graph for diffing.
	assert.Len(t, g.AttributesOf(g.Nodes[0].ID), 4)
}

func TestEvaluateSplitNodeBlock(t *testing.T) {
	// Attributes split across continuation blocks all feed the node's
	// derivations; the split must not manufacture a spurious cycle.
	src := "# Door [Rectangle]\nhas width: 2.0;\n\n# Wall [Thing]\n\n# Door [Rectangle]\nhas height: 3.0;\n"
	_, derived, errs := evaluate(t, testSnapshot(t), src, nil)
	require.Empty(t, errs)
	require.Len(t, derived, 2)

	byName := make(map[string]*graph.Attribute)
	for _, a := range derived {
		byName[a.Name] = a
	}
	assert.Equal(t, 6.0, byName["area"].Value.Float)
	assert.Equal(t, 3.0, byName["halfArea"].Value.Float)
}

func TestEvaluateTopologicalOrder(t *testing.T) {
	// halfArea depends on area; a sorted-by-name queue alone would not
	// save a reversed declaration, so this exercises the ordering.
	snap, err := schema.NewSnapshot(
		[]schema.NodeType{{Name: "Rectangle"}},
		nil,
		[]schema.AttributeType{
			{Name: "width", ValueType: schema.ValueFloat},
			{Name: "height", ValueType: schema.ValueFloat},
		},
		[]schema.FunctionType{
			{Name: "aTotal", Expression: "zBase * 2", Scope: []string{"Rectangle"}},
			{Name: "zBase", Expression: "width * height", Scope: []string{"Rectangle"}},
		},
	)
	require.NoError(t, err)

	src := "# Door [Rectangle]\nhas width: 2.0;\nhas height: 3.0;\n"
	_, derived, errs := evaluate(t, snap, src, nil)
	require.Empty(t, errs)

	byName := make(map[string]float64)
	for _, a := range derived {
		byName[a.Name] = a.Value.Float
	}
	assert.Equal(t, 6.0, byName["zBase"])
	assert.Equal(t, 12.0, byName["aTotal"])
}

func TestEvaluateCircularDerivation(t *testing.T) {
	snap, err := schema.NewSnapshot(
		[]schema.NodeType{{Name: "Rectangle"}},
		nil,
		nil,
		[]schema.FunctionType{
			{Name: "a", Expression: "b + 1", Scope: []string{"Rectangle"}},
			{Name: "b", Expression: "a + 1", Scope: []string{"Rectangle"}},
		},
	)
	require.NoError(t, err)

	g, fns, errs := resolve(t, snap, "# Door [Rectangle]\n", Options{}, nil)
	require.Empty(t, errs)
	_, evalErrs := NewEvaluator(nil).Evaluate(g, fns)
	require.Len(t, evalErrs, 1)
	assert.Equal(t, ErrCircularDerivation, evalErrs[0].Kind)
	assert.Contains(t, evalErrs[0].Message, "a")
	assert.Contains(t, evalErrs[0].Message, "b")
}

func TestEvaluateNonNumericInput(t *testing.T) {
	snap, err := schema.NewSnapshot(
		[]schema.NodeType{{Name: "Rectangle"}},
		nil,
		[]schema.AttributeType{{Name: "width", ValueType: schema.ValueString}},
		[]schema.FunctionType{{Name: "double", Expression: "width * 2", Scope: []string{"Rectangle"}}},
	)
	require.NoError(t, err)

	g, fns, errs := resolve(t, snap, "# Door [Rectangle]\nhas width: wide;\n", Options{}, nil)
	require.Empty(t, errs)
	derived, evalErrs := NewEvaluator(nil).Evaluate(g, fns)
	require.Len(t, evalErrs, 1)
	assert.Equal(t, ErrInvalidAttributeValue, evalErrs[0].Kind)
	assert.Empty(t, derived)
}

func TestEvaluateReusesPriorWhenInputsUnchanged(t *testing.T) {
	snap := testSnapshot(t)
	src := "# Door [Rectangle]\nhas width: 2.0;\nhas height: 3.0;\n"

	// First compilation produces the prior snapshot.
	prior, derived, errs := evaluate(t, snap, src, nil)
	require.Empty(t, errs)
	require.Len(t, derived, 2)

	// Same inputs: the evaluator must hand back the prior values.
	_, derived2, errs := evaluate(t, snap, src, prior)
	require.Empty(t, errs)
	byName := make(map[string]*graph.Attribute)
	for _, a := range derived2 {
		byName[a.Name] = a
	}
	assert.Equal(t, 6.0, byName["area"].Value.Float)

	// Changed input: every transitively dependent derivation updates.
	changed := "# Door [Rectangle]\nhas width: 4.0;\nhas height: 3.0;\n"
	_, derived3, errs := evaluate(t, snap, changed, prior)
	require.Empty(t, errs)
	byName = make(map[string]*graph.Attribute)
	for _, a := range derived3 {
		byName[a.Name] = a
	}
	assert.Equal(t, 12.0, byName["area"].Value.Float)
	assert.Equal(t, 6.0, byName["halfArea"].Value.Float)
}

func TestEvaluateRecomputesWhenExpressionChanges(t *testing.T) {
	rectSnapshot := func(expr string) *schema.Snapshot {
		snap, err := schema.NewSnapshot(
			[]schema.NodeType{{Name: "Rectangle"}},
			nil,
			[]schema.AttributeType{
				{Name: "width", ValueType: schema.ValueFloat},
				{Name: "height", ValueType: schema.ValueFloat},
			},
			[]schema.FunctionType{{Name: "area", Expression: expr, Scope: []string{"Rectangle"}}},
		)
		require.NoError(t, err)
		return snap
	}

	src := "# Door [Rectangle]\nhas width: 2.0;\nhas height: 3.0;\n"
	prior, derived, errs := evaluate(t, rectSnapshot("width * height"), src, nil)
	require.Empty(t, errs)
	require.Len(t, derived, 1)
	assert.Equal(t, 6.0, derived[0].Value.Float)

	// Same inputs, changed expression: the stored value no longer
	// follows from its inputs and must not be reused.
	_, derived2, errs := evaluate(t, rectSnapshot("width + height"), src, prior)
	require.Empty(t, errs)
	require.Len(t, derived2, 1)
	assert.Equal(t, 5.0, derived2[0].Value.Float)
}
