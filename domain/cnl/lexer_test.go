package cnl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexClassifiesLineKinds(t *testing.T) {
	src := "# Water [Liquid; Chemical]\n" +
		"<contains> Hydrogen;\n" +
		"has boilingPoint: 100 *celsius*;\n" +
		"\n" +
		"## as a gas\n"

	lines, errs := Lex(src)
	require.Empty(t, errs)

	kinds := make([]LineKind, len(lines))
	for i, l := range lines {
		kinds[i] = l.Kind
	}
	assert.Equal(t, []LineKind{
		LineNodeHeading,
		LineRelation,
		LineAttribute,
		LineBlank,
		LineMorphHeading,
	}, kinds)
}

func TestLexTrailingNewlineAddsNoLine(t *testing.T) {
	lines, errs := Lex("# Rex\n")
	require.Empty(t, errs)
	require.Len(t, lines, 1)
	assert.Equal(t, LineNodeHeading, lines[0].Kind)

	// A genuinely blank line before the terminator survives.
	lines, errs = Lex("# Rex\n\n")
	require.Empty(t, errs)
	require.Len(t, lines, 2)
	assert.Equal(t, LineBlank, lines[1].Kind)
}

func TestLexNodeHeading(t *testing.T) {
	lines, errs := Lex("# **Hot** Water [Liquid; Chemical]")
	require.Empty(t, errs)
	require.Len(t, lines, 1)

	l := lines[0]
	assert.Equal(t, LineNodeHeading, l.Kind)
	assert.Equal(t, "Hot Water", l.Name)
	assert.Equal(t, "Water", l.BaseName)
	assert.Equal(t, "Hot", l.Adjective)
	assert.Equal(t, []string{"Liquid", "Chemical"}, l.TypeNames)
}

func TestLexHeadingWithoutTypes(t *testing.T) {
	lines, errs := Lex("# Rex")
	require.Empty(t, errs)
	assert.Equal(t, "Rex", lines[0].BaseName)
	assert.Empty(t, lines[0].TypeNames)
}

func TestLexMorphHeading(t *testing.T) {
	lines, errs := Lex("## as a liquid")
	require.Empty(t, errs)
	assert.Equal(t, LineMorphHeading, lines[0].Kind)
	assert.Equal(t, "as a liquid", lines[0].MorphName)
}

func TestLexRelation(t *testing.T) {
	tests := []struct {
		in     string
		name   string
		target string
	}{
		{"<eats> Bone;", "eats", "Bone"},
		{"<eats> Bone", "eats", "Bone"},
		{"<part of> Solar System;", "part of", "Solar System"},
	}
	for _, tt := range tests {
		lines, errs := Lex(tt.in)
		require.Empty(t, errs, tt.in)
		assert.Equal(t, LineRelation, lines[0].Kind, tt.in)
		assert.Equal(t, tt.name, lines[0].RelationName, tt.in)
		assert.Equal(t, tt.target, lines[0].Target, tt.in)
	}
}

func TestLexAttribute(t *testing.T) {
	lines, errs := Lex("has age: 5;")
	require.Empty(t, errs)
	assert.Equal(t, LineAttribute, lines[0].Kind)
	assert.Equal(t, "age", lines[0].AttributeName)
	assert.Equal(t, "5", lines[0].ValueSegment)
}

func TestLexFenceCapturesVerbatim(t *testing.T) {
	src := "# Rex [Dog]\n" +
		"```description\n" +
		"# not a heading\n" +
		"<not> a relation;\n" +
		"```\n"

	lines, errs := Lex(src)
	require.Empty(t, errs)
	assert.Equal(t, LineFenceDescription, lines[1].Kind)
	assert.Equal(t, LineVerbatim, lines[2].Kind)
	assert.Equal(t, LineVerbatim, lines[3].Kind)
	assert.Equal(t, LineFenceClose, lines[4].Kind)
}

func TestLexUnterminatedFence(t *testing.T) {
	_, errs := Lex("```description\ntext")
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[len(errs)-1].Message, "unterminated")
}

func TestLexInvalidLineReportsLineNumber(t *testing.T) {
	_, errs := Lex("# Rex [Dog]\nwhat is this line\n")
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Line)
}

func TestExtractModifiers(t *testing.T) {
	mods := ExtractModifiers("++approximately++ 100 *celsius* [observed]")
	assert.Equal(t, "100", mods.Value)
	assert.Equal(t, "approximately", mods.Quantifier)
	assert.Equal(t, "celsius", mods.Unit)
	assert.Equal(t, "observed", mods.Modality)
	assert.Empty(t, mods.Adjective)
}

func TestExtractModifiersAdjectiveBeforeUnit(t *testing.T) {
	// Double-star adjective markup must not be read as two empty units.
	mods := ExtractModifiers("**searing** 450 *fahrenheit*")
	assert.Equal(t, "searing", mods.Adjective)
	assert.Equal(t, "fahrenheit", mods.Unit)
	assert.Equal(t, "450", mods.Value)
}

func TestExtractModifiersPlainValue(t *testing.T) {
	mods := ExtractModifiers("  blue  ")
	assert.Equal(t, "blue", mods.Value)
	assert.Empty(t, mods.Unit)
	assert.Empty(t, mods.Modality)
}
