package compiler

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// Function expressions are plain arithmetic over sibling attribute
// names: identifiers, numeric literals, + - * /, unary minus and
// parentheses.

// Expression is the root of the expression grammar.
type Expression struct {
	Left *Term     `parser:"@@"`
	Rest []*OpTerm `parser:"@@*"`
}

// OpTerm is an additive continuation.
type OpTerm struct {
	Op   string `parser:"@('+' | '-')"`
	Term *Term  `parser:"@@"`
}

// Term is a multiplicative chain.
type Term struct {
	Left *Factor     `parser:"@@"`
	Rest []*OpFactor `parser:"@@*"`
}

// OpFactor is a multiplicative continuation.
type OpFactor struct {
	Op     string  `parser:"@('*' | '/')"`
	Factor *Factor `parser:"@@"`
}

// Factor is a literal, identifier, negation or parenthesized group.
type Factor struct {
	Number *float64    `parser:"  @(Float | Int)"`
	Ident  *string     `parser:"| @Ident"`
	Neg    *Factor     `parser:"| '-' @@"`
	Sub    *Expression `parser:"| '(' @@ ')'"`
}

var exprParser = participle.MustBuild[Expression](
	participle.UseLookahead(2),
)

// ParseExpression parses a function expression into its AST.
func ParseExpression(src string) (*Expression, error) {
	expr, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("malformed expression %q: %w", src, err)
	}
	return expr, nil
}

// Identifiers returns every attribute name the expression references,
// in first-appearance order without duplicates.
func (e *Expression) Identifiers() []string {
	seen := make(map[string]struct{})
	var out []string
	e.collectIdents(seen, &out)
	return out
}

func (e *Expression) collectIdents(seen map[string]struct{}, out *[]string) {
	if e == nil {
		return
	}
	e.Left.collectIdents(seen, out)
	for _, t := range e.Rest {
		t.Term.collectIdents(seen, out)
	}
}

func (t *Term) collectIdents(seen map[string]struct{}, out *[]string) {
	if t == nil {
		return
	}
	t.Left.collectIdents(seen, out)
	for _, f := range t.Rest {
		f.Factor.collectIdents(seen, out)
	}
}

func (f *Factor) collectIdents(seen map[string]struct{}, out *[]string) {
	switch {
	case f == nil:
	case f.Ident != nil:
		if _, ok := seen[*f.Ident]; !ok {
			seen[*f.Ident] = struct{}{}
			*out = append(*out, *f.Ident)
		}
	case f.Neg != nil:
		f.Neg.collectIdents(seen, out)
	case f.Sub != nil:
		f.Sub.collectIdents(seen, out)
	}
}

// Eval computes the expression over the given variable bindings.
func (e *Expression) Eval(vars map[string]float64) (float64, error) {
	acc, err := e.Left.eval(vars)
	if err != nil {
		return 0, err
	}
	for _, t := range e.Rest {
		v, err := t.Term.eval(vars)
		if err != nil {
			return 0, err
		}
		if t.Op == "+" {
			acc += v
		} else {
			acc -= v
		}
	}
	return acc, nil
}

func (t *Term) eval(vars map[string]float64) (float64, error) {
	acc, err := t.Left.eval(vars)
	if err != nil {
		return 0, err
	}
	for _, f := range t.Rest {
		v, err := f.Factor.eval(vars)
		if err != nil {
			return 0, err
		}
		if f.Op == "*" {
			acc *= v
		} else {
			if v == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			acc /= v
		}
	}
	return acc, nil
}

func (f *Factor) eval(vars map[string]float64) (float64, error) {
	switch {
	case f.Number != nil:
		return *f.Number, nil
	case f.Ident != nil:
		v, ok := vars[*f.Ident]
		if !ok {
			return 0, fmt.Errorf("unresolved identifier %q", *f.Ident)
		}
		return v, nil
	case f.Neg != nil:
		v, err := f.Neg.eval(vars)
		return -v, err
	case f.Sub != nil:
		return f.Sub.Eval(vars)
	}
	return 0, fmt.Errorf("empty expression factor")
}
