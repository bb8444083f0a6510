// Package compiler turns CNL text into a schema-validated, diffable
// graph mutation. The pipeline is lex -> parse -> resolve -> evaluate
// -> diff, a pure function of (text, schema snapshot, prior snapshot)
// with no internal suspension points; serialization of submissions per
// graph id is the caller's concern.
package compiler

import (
	"cnlgraph/domain/cnl"
	"cnlgraph/domain/graph"
	"cnlgraph/domain/schema"
)

// Options control one compilation.
type Options struct {
	// Strict aborts on any accumulated error; nothing is applied.
	// Lenient mode compiles the valid declarations and reports the
	// skipped ones. Schema integrity errors abort in either mode.
	Strict bool

	// AllowImplicitTargets auto-creates an untyped stub node for a
	// relation target that is not declared anywhere. When false such a
	// relation is rejected with UnknownNodeTarget.
	AllowImplicitTargets bool
}

// Result is the outcome of one compilation.
type Result struct {
	GraphID string
	Graph   *graph.Graph     // the resolved and evaluated tree
	Changes graph.ChangeList // empty when Failed
	Derived []*graph.Attribute
	Errors  ErrorList
	Skipped []SkippedDecl

	strict bool
}

// Failed reports whether the change list must not be applied: any error
// in strict mode, or a fatal error in either mode.
func (r *Result) Failed() bool {
	if len(r.Errors) == 0 {
		return false
	}
	return r.strict || r.Errors.HasFatal()
}

// Compile runs the full pipeline against a pinned schema snapshot and
// the prior stored snapshot for the same graph id. index may be nil.
func Compile(graphID, cnlText string, opts Options, snap *schema.Snapshot, prior *graph.Graph, index NodeIndex) *Result {
	result := &Result{GraphID: graphID, strict: opts.Strict}

	parsed := cnl.Parse(cnlText)

	resolver := NewResolver(snap, prior, index, opts)
	g, fns, skipped, errs := resolver.Resolve(graphID, parsed)
	result.Graph = g
	result.Skipped = skipped
	result.Errors = errs

	if result.Errors.HasFatal() {
		return result
	}

	derived, evalErrs := NewEvaluator(prior).Evaluate(g, fns)
	result.Derived = derived
	result.Errors = append(result.Errors, evalErrs...)

	if result.Failed() {
		return result
	}

	result.Changes = Diff(g, prior)
	return result
}
