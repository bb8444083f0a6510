package compiler

import (
	"sort"
	"strings"

	"cnlgraph/domain/graph"
)

// Evaluator computes derived attributes in dependency order. A function
// may reference base attributes and other functions on the same node;
// references form a dependency graph that must be acyclic.
type Evaluator struct {
	prior *graph.Graph
}

// NewEvaluator builds an evaluator. The prior snapshot feeds the dirty
// check: a derivation whose transitive inputs are unchanged reuses its
// previously computed value instead of being recomputed.
func NewEvaluator(prior *graph.Graph) *Evaluator {
	if prior == nil {
		prior = graph.NewGraph("")
	}
	return &Evaluator{prior: prior}
}

// Evaluate appends one derived attribute per function instance to g and
// returns them. Cycles and non-numeric inputs are reported per node.
func (ev *Evaluator) Evaluate(g *graph.Graph, fns []*FunctionInstance) ([]*graph.Attribute, ErrorList) {
	var errs ErrorList
	var derived []*graph.Attribute

	byNode := make(map[graph.NodeID][]*FunctionInstance)
	var order []graph.NodeID
	for _, fn := range fns {
		if _, seen := byNode[fn.Node.ID]; !seen {
			order = append(order, fn.Node.ID)
		}
		byNode[fn.Node.ID] = append(byNode[fn.Node.ID], fn)
	}

	for _, nodeID := range order {
		attrs := ev.evaluateNode(g, byNode[nodeID], &errs)
		derived = append(derived, attrs...)
	}

	g.Attributes = append(g.Attributes, derived...)
	return derived, errs
}

func (ev *Evaluator) evaluateNode(g *graph.Graph, fns []*FunctionInstance, errs *ErrorList) []*graph.Attribute {
	node := fns[0].Node

	fnByName := make(map[string]*FunctionInstance, len(fns))
	for _, fn := range fns {
		fnByName[fn.Fn.Name] = fn
	}

	baseValues := make(map[string]float64)
	baseRaw := make(map[string]graph.Value)
	for _, a := range g.AttributesOf(node.ID) {
		if a.IsDerived {
			continue
		}
		baseRaw[a.Name] = a.Value
		if v, ok := a.Value.Number(); ok {
			baseValues[a.Name] = v
		}
	}

	// Kahn's algorithm over function-to-function references.
	indegree := make(map[string]int, len(fns))
	dependents := make(map[string][]string)
	for _, fn := range fns {
		indegree[fn.Fn.Name] = 0
	}
	for _, fn := range fns {
		for _, ident := range fn.Expr.Identifiers() {
			if _, isFn := fnByName[ident]; isFn {
				indegree[fn.Fn.Name]++
				dependents[ident] = append(dependents[ident], fn.Fn.Name)
			}
		}
	}

	var queue []string
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var topo []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		topo = append(topo, name)
		next := dependents[name]
		sort.Strings(next)
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(topo) < len(fnByName) {
		var cycle []string
		for name, deg := range indegree {
			if deg > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		errs.Add(fns[0].Line, ErrCircularDerivation,
			"functions on %q form a dependency cycle: %s", node.BaseName, strings.Join(cycle, ", "))
		return nil
	}

	vars := make(map[string]float64, len(baseValues)+len(fns))
	for k, v := range baseValues {
		vars[k] = v
	}

	var out []*graph.Attribute
	for _, name := range topo {
		fn := fnByName[name]

		// Non-numeric base inputs are caught here rather than during
		// expression evaluation, so the error names the attribute.
		inputsOK := true
		for _, ident := range fn.Expr.Identifiers() {
			if _, isFn := fnByName[ident]; isFn {
				continue
			}
			if _, numeric := baseValues[ident]; !numeric {
				errs.Add(fn.Line, ErrInvalidAttributeValue,
					"function %q needs a numeric %q, but it is %s", name, ident, baseRaw[ident].Type)
				inputsOK = false
			}
		}
		if !inputsOK {
			continue
		}

		sig := derivationSignature(fn, fnByName)
		value, reused := ev.reusePrior(node, fn, fnByName, baseRaw, sig)
		if !reused {
			computed, err := fn.Expr.Eval(vars)
			if err != nil {
				errs.Add(fn.Line, ErrInvalidAttributeValue, "function %q: %v", name, err)
				continue
			}
			value = graph.FloatValue(computed)
		}

		if f, ok := value.Number(); ok {
			vars[name] = f
		}
		out = append(out, &graph.Attribute{
			ID:         graph.DeriveAttributeID(node.ID, fn.Morph, name),
			SourceID:   node.ID,
			Name:       name,
			Value:      value,
			IsDerived:  true,
			Derivation: sig,
			MorphIDs:   []graph.MorphID{fn.Morph},
		})
	}
	return out
}

// reusePrior returns the previously computed value for fn when the
// derivation signature matches and every transitive base dependency is
// value-identical to the prior snapshot. A signature mismatch means the
// schema's function expressions changed between compilations, so the
// stored value may no longer follow from its inputs.
func (ev *Evaluator) reusePrior(node *graph.Node, fn *FunctionInstance, fnByName map[string]*FunctionInstance, baseRaw map[string]graph.Value, sig string) (graph.Value, bool) {
	priorNode, ok := ev.prior.NodeByID(node.ID)
	if !ok {
		return graph.Value{}, false
	}

	priorAttrs := make(map[string]*graph.Attribute)
	for _, a := range ev.prior.AttributesOf(priorNode.ID) {
		priorAttrs[a.Name] = a
	}
	priorDerived, ok := priorAttrs[fn.Fn.Name]
	if !ok || !priorDerived.IsDerived || priorDerived.Derivation != sig {
		return graph.Value{}, false
	}

	for _, dep := range ev.transitiveBaseDeps(fn, fnByName) {
		cur, curOK := baseRaw[dep]
		prev, prevOK := priorAttrs[dep]
		if !curOK || !prevOK || !cur.Equal(prev.Value) {
			return graph.Value{}, false
		}
	}
	return priorDerived.Value, true
}

// derivationSignature fingerprints the expressions a derivation depends
// on: the function's own expression plus those of every function it
// transitively references.
func derivationSignature(fn *FunctionInstance, fnByName map[string]*FunctionInstance) string {
	parts := []string{fn.Fn.Name + "=" + fn.Fn.Expression}
	seen := map[string]struct{}{fn.Fn.Name: {}}
	var walk func(f *FunctionInstance)
	walk = func(f *FunctionInstance) {
		for _, ident := range f.Expr.Identifiers() {
			sub, isFn := fnByName[ident]
			if !isFn {
				continue
			}
			if _, done := seen[ident]; done {
				continue
			}
			seen[ident] = struct{}{}
			parts = append(parts, sub.Fn.Name+"="+sub.Fn.Expression)
			walk(sub)
		}
	}
	walk(fn)
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func (ev *Evaluator) transitiveBaseDeps(fn *FunctionInstance, fnByName map[string]*FunctionInstance) []string {
	seen := make(map[string]struct{})
	var base []string
	var walk func(f *FunctionInstance)
	walk = func(f *FunctionInstance) {
		for _, ident := range f.Expr.Identifiers() {
			if _, done := seen[ident]; done {
				continue
			}
			seen[ident] = struct{}{}
			if sub, isFn := fnByName[ident]; isFn {
				walk(sub)
			} else {
				base = append(base, ident)
			}
		}
	}
	walk(fn)
	sort.Strings(base)
	return base
}
