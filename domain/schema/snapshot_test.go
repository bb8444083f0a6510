package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAncestryTransitiveClosure(t *testing.T) {
	snap, err := NewSnapshot(
		[]NodeType{
			{Name: "Thing"},
			{Name: "Animal", ParentTypes: []string{"Thing"}},
			{Name: "Dog", ParentTypes: []string{"Animal"}},
			{Name: "Pet", ParentTypes: []string{"Thing"}},
			{Name: "Spaniel", ParentTypes: []string{"Dog", "Pet"}},
		},
		nil, nil, nil,
	)
	require.NoError(t, err)

	anc := snap.Ancestry("Spaniel")
	assert.Contains(t, anc, "Spaniel")
	assert.Contains(t, anc, "Dog")
	assert.Contains(t, anc, "Pet")
	assert.Contains(t, anc, "Animal")
	assert.Contains(t, anc, "Thing")

	// Transitivity: Animal parents Thing, Dog parents Animal,
	// so Thing must appear in Dog's ancestry.
	assert.Contains(t, snap.Ancestry("Dog"), "Thing")
}

func TestAncestryMultipleDeclaredTypes(t *testing.T) {
	snap, err := NewSnapshot(
		[]NodeType{
			{Name: "Liquid"},
			{Name: "Chemical"},
			{Name: "Solvent", ParentTypes: []string{"Liquid", "Chemical"}},
		},
		nil, nil, nil,
	)
	require.NoError(t, err)

	anc := snap.Ancestry("Solvent", "Liquid")
	assert.ElementsMatch(t, []string{"Solvent", "Liquid", "Chemical"}, anc)
}

func TestAncestryUnknownTypePassesThrough(t *testing.T) {
	snap, err := NewSnapshot(nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ghost"}, snap.Ancestry("Ghost"))
}

func TestCyclicHierarchyDetected(t *testing.T) {
	_, err := NewSnapshot(
		[]NodeType{
			{Name: "A", ParentTypes: []string{"B"}},
			{Name: "B", ParentTypes: []string{"C"}},
			{Name: "C", ParentTypes: []string{"A"}},
		},
		nil, nil, nil,
	)
	require.Error(t, err)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.GreaterOrEqual(t, len(cycleErr.Cycle), 3)
}

func TestSelfCycleDetected(t *testing.T) {
	_, err := NewSnapshot(
		[]NodeType{{Name: "Ouroboros", ParentTypes: []string{"Ouroboros"}}},
		nil, nil, nil,
	)
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
}

func TestSymmetricRelationInvariant(t *testing.T) {
	_, err := NewSnapshot(nil,
		[]RelationType{{Name: "marriedTo", Symmetric: true, InverseName: "divorcedFrom"}},
		nil, nil,
	)
	assert.Error(t, err)

	_, err = NewSnapshot(nil,
		[]RelationType{{Name: "marriedTo", Symmetric: true, InverseName: "marriedTo"}},
		nil, nil,
	)
	assert.NoError(t, err)

	_, err = NewSnapshot(nil,
		[]RelationType{{Name: "marriedTo", Symmetric: true}},
		nil, nil,
	)
	assert.NoError(t, err)
}

func TestAttributeTypeValueTypeValidation(t *testing.T) {
	_, err := NewSnapshot(nil, nil,
		[]AttributeType{{Name: "age", ValueType: "number"}},
		nil,
	)
	assert.Error(t, err)

	_, err = NewSnapshot(nil, nil,
		[]AttributeType{{Name: "age", ValueType: ValueInteger}},
		nil,
	)
	assert.NoError(t, err)
}

func TestIntersects(t *testing.T) {
	assert.True(t, Intersects([]string{"Dog", "Animal"}, nil), "empty allowed set is unrestricted")
	assert.True(t, Intersects([]string{"Dog", "Animal"}, []string{"Animal"}))
	assert.False(t, Intersects([]string{"Rock"}, []string{"Animal"}))
}

func TestFunctionsInScope(t *testing.T) {
	snap, err := NewSnapshot(
		[]NodeType{
			{Name: "Shape"},
			{Name: "Rectangle", ParentTypes: []string{"Shape"}},
		},
		nil, nil,
		[]FunctionType{
			{Name: "area", Expression: "width * height", Scope: []string{"Rectangle"}},
			{Name: "label", Expression: "width", Scope: []string{"Circle"}},
			{Name: "universal", Expression: "width + 1"},
		},
	)
	require.NoError(t, err)

	fns := snap.FunctionsInScope(snap.Ancestry("Rectangle"))
	names := make([]string, len(fns))
	for i, f := range fns {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"area", "universal"}, names)
}

func TestDuplicateDefinitionsRejected(t *testing.T) {
	_, err := NewSnapshot(
		[]NodeType{{Name: "A"}, {Name: "A"}},
		nil, nil, nil,
	)
	assert.Error(t, err)
}
