package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpressionIdentifiers(t *testing.T) {
	expr, err := ParseExpression("width * height + depth")
	require.NoError(t, err)
	assert.Equal(t, []string{"width", "height", "depth"}, expr.Identifiers())
}

func TestEvalPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		vars map[string]float64
		want float64
	}{
		{"2 + 3 * 4", nil, 14},
		{"(2 + 3) * 4", nil, 20},
		{"10 - 4 - 3", nil, 3},
		{"12 / 4 / 3", nil, 1},
		{"-3 + 5", nil, 2},
		{"width * height", map[string]float64{"width": 3, "height": 4}, 12},
		{"width * (height + 1)", map[string]float64{"width": 2, "height": 4}, 10},
	}
	for _, tt := range tests {
		expr, err := ParseExpression(tt.src)
		require.NoError(t, err, tt.src)
		got, err := expr.Eval(tt.vars)
		require.NoError(t, err, tt.src)
		assert.InDelta(t, tt.want, got, 1e-9, tt.src)
	}
}

func TestEvalUnresolvedIdentifier(t *testing.T) {
	expr, err := ParseExpression("width * height")
	require.NoError(t, err)
	_, err = expr.Eval(map[string]float64{"width": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "height")
}

func TestEvalDivisionByZero(t *testing.T) {
	expr, err := ParseExpression("1 / n")
	require.NoError(t, err)
	_, err = expr.Eval(map[string]float64{"n": 0})
	assert.Error(t, err)
}

func TestParseExpressionMalformed(t *testing.T) {
	for _, src := range []string{"", "1 +", "width height", "(1 + 2"} {
		_, err := ParseExpression(src)
		assert.Error(t, err, src)
	}
}
