package compiler

import (
	"cnlgraph/domain/cnl"
	"cnlgraph/domain/graph"
	"cnlgraph/domain/schema"
)

// NodeIndex is the read-only cross-graph node name index. It only
// answers whether a base name is known anywhere in the store; the
// compiler never writes to it.
type NodeIndex interface {
	HasNode(baseName string) bool
}

// emptyIndex is used when no cross-graph index is supplied.
type emptyIndex struct{}

func (emptyIndex) HasNode(string) bool { return false }

// FunctionInstance is one derived-attribute evaluation obligation:
// a function type bound to a concrete node.
type FunctionInstance struct {
	Node  *graph.Node
	Morph graph.MorphID
	Fn    schema.FunctionType
	Expr  *Expression
	Line  int
}

// SkippedDecl records a declaration left out of the compiled graph in
// lenient mode.
type SkippedDecl struct {
	Line   int    `json:"line"`
	What   string `json:"what"`
	Reason string `json:"reason"`
}

// Resolver type-checks a parse tree against a pinned schema snapshot
// and produces the typed graph plus the derived-attribute plan.
type Resolver struct {
	schema *schema.Snapshot
	prior  *graph.Graph
	index  NodeIndex
	opts   Options

	g       *graph.Graph
	errs    ErrorList
	skipped []SkippedDecl

	// declared tracks which parse-tree node produced each resolved
	// node, for duplicate-identity detection.
	declLines map[string]int
}

// NewResolver builds a resolver for one compilation.
func NewResolver(snap *schema.Snapshot, prior *graph.Graph, index NodeIndex, opts Options) *Resolver {
	if index == nil {
		index = emptyIndex{}
	}
	if prior == nil {
		prior = graph.NewGraph("")
	}
	return &Resolver{
		schema:    snap,
		prior:     prior,
		index:     index,
		opts:      opts,
		declLines: make(map[string]int),
	}
}

// Resolve runs both resolution passes. The returned graph contains only
// the declarations that type-checked; everything else is reported in
// the error list and, for lenient mode, the skipped list.
func (r *Resolver) Resolve(graphID string, parsed *cnl.ParseResult) (*graph.Graph, []*FunctionInstance, []SkippedDecl, ErrorList) {
	r.g = graph.NewGraph(graphID)
	r.g.Description = parsed.GraphDescription

	// Structural and lexical errors surface as syntax errors; the
	// offending declarations never reached the parse tree.
	for _, e := range parsed.Errors {
		r.errs.Add(e.Line, ErrSyntax, "%s", e.Message)
	}

	// Pass 1: nodes, so forward relation references resolve regardless
	// of declaration order.
	kept := make([]*cnl.NodeDecl, 0, len(parsed.Nodes))
	for _, decl := range parsed.Nodes {
		if node := r.resolveNode(graphID, decl); node != nil {
			kept = append(kept, decl)
		}
	}

	// Pass 2: relations and attributes under each kept node.
	for _, decl := range kept {
		node, ok := r.g.NodeByKey(decl.BaseName, roleOf(decl.TypeNames))
		if !ok {
			continue
		}
		for _, morphDecl := range decl.Morphs {
			morph := node.EnsureMorph(morphDecl.Name)
			for _, rel := range morphDecl.Relations {
				r.resolveRelation(node, morph, rel)
			}
			for _, attr := range morphDecl.Attributes {
				r.resolveAttribute(node, morph, attr)
			}
		}
	}

	fns := r.resolveFunctions(kept)
	return r.g, fns, r.skipped, r.errs
}

func roleOf(typeNames []string) string {
	if len(typeNames) == 0 {
		return ""
	}
	return typeNames[0]
}

func (r *Resolver) resolveNode(graphID string, decl *cnl.NodeDecl) *graph.Node {
	for _, typeName := range decl.TypeNames {
		if _, ok := r.schema.NodeType(typeName); !ok {
			r.errs.Add(decl.Line, ErrUnknownNodeType, "node %q declares unknown type %q", decl.BaseName, typeName)
			r.skip(decl.Line, "node "+decl.BaseName, "unknown node type "+typeName)
			return nil
		}
	}

	role := roleOf(decl.TypeNames)
	key := graph.NodeKey(decl.BaseName, role)
	if existing, ok := r.g.NodeByKey(decl.BaseName, role); ok {
		// A re-declaration of the same identity is a continuation of
		// the earlier block unless its fields contradict it.
		if decl.Description != "" && existing.Description != "" && decl.Description != existing.Description {
			r.errs.Add(decl.Line, ErrDuplicateIdentity,
				"node %q declared twice with conflicting descriptions (first at line %d)", decl.BaseName, r.declLines[key])
			return nil
		}
		if decl.Description != "" {
			existing.Description = decl.Description
		}
		return existing
	}

	node := &graph.Node{
		ID:          graph.DeriveNodeID(graphID, decl.BaseName, role),
		BaseName:    decl.BaseName,
		Name:        decl.Name,
		Role:        role,
		ParentTypes: r.schema.Ancestry(decl.TypeNames...),
		Description: decl.Description,
	}
	node.EnsureMorph(graph.DefaultMorphName)
	r.g.Nodes = append(r.g.Nodes, node)
	r.declLines[key] = decl.Line
	return node
}

func (r *Resolver) resolveRelation(source *graph.Node, morph graph.Morph, decl *cnl.RelationDecl) {
	rt, ok := r.schema.RelationType(decl.Name)
	if !ok {
		r.errs.Add(decl.Line, ErrUnknownRelationType, "unknown relation type %q", decl.Name)
		r.skip(decl.Line, "relation "+decl.Name, "unknown relation type")
		return
	}

	if !schema.Intersects(source.ParentTypes, rt.Domain) {
		r.errs.Add(decl.Line, ErrDomainRangeViolation,
			"relation %q requires source in %v, but %q has types %v",
			rt.Name, rt.Domain, source.BaseName, source.ParentTypes)
		r.skip(decl.Line, "relation "+decl.Name, "domain violation")
		return
	}

	target := r.resolveTarget(decl)
	if target == nil {
		return
	}

	if !schema.Intersects(target.ParentTypes, rt.Range) {
		r.errs.Add(decl.Line, ErrDomainRangeViolation,
			"relation %q requires target in %v, but %q has types %v",
			rt.Name, rt.Range, target.BaseName, target.ParentTypes)
		r.skip(decl.Line, "relation "+decl.Name, "range violation")
		return
	}

	r.addRelation(source.ID, morph.ID, rt.Name, target.ID)

	// Symmetric relations materialize the inverse edge on the target's
	// default morph when the target is part of this submission.
	if rt.Symmetric && target.ID != source.ID {
		if _, local := r.g.NodeByID(target.ID); local {
			inverseMorph := target.EnsureMorph(graph.DefaultMorphName)
			r.addRelation(target.ID, inverseMorph.ID, rt.Name, source.ID)
		}
	}
}

// resolveTarget finds the node a relation points at: first among the
// nodes of this submission, then in the prior snapshot. An unknown
// target is either rejected or auto-created as an untyped stub,
// depending on the compile options.
func (r *Resolver) resolveTarget(decl *cnl.RelationDecl) *graph.Node {
	if node, ok := r.g.NodeByBaseName(decl.Target); ok {
		return node
	}
	if node, ok := r.prior.NodeByBaseName(decl.Target); ok {
		return node
	}
	if !r.opts.AllowImplicitTargets {
		if r.index.HasNode(decl.Target) {
			r.errs.Add(decl.Line, ErrUnknownNodeTarget,
				"relation target %q exists in another graph but is not declared here", decl.Target)
		} else {
			r.errs.Add(decl.Line, ErrUnknownNodeTarget, "relation target %q is not declared", decl.Target)
		}
		r.skip(decl.Line, "relation "+decl.Name, "undeclared target "+decl.Target)
		return nil
	}

	stub := &graph.Node{
		ID:       graph.DeriveNodeID(r.g.ID, decl.Target, ""),
		BaseName: decl.Target,
		Name:     decl.Target,
	}
	stub.EnsureMorph(graph.DefaultMorphName)
	r.g.Nodes = append(r.g.Nodes, stub)
	return stub
}

func (r *Resolver) addRelation(sourceID graph.NodeID, morphID graph.MorphID, name string, targetID graph.NodeID) {
	id := graph.DeriveRelationID(sourceID, morphID, name, targetID)
	for _, existing := range r.g.Relations {
		if existing.ID == id {
			return // identical re-declaration
		}
	}
	r.g.Relations = append(r.g.Relations, &graph.Relation{
		ID:       id,
		SourceID: sourceID,
		TargetID: targetID,
		Name:     name,
		MorphIDs: []graph.MorphID{morphID},
	})
}

func (r *Resolver) resolveAttribute(node *graph.Node, morph graph.Morph, decl *cnl.AttributeDecl) {
	at, ok := r.schema.AttributeType(decl.Name)
	if !ok {
		r.errs.Add(decl.Line, ErrUnknownAttributeType, "unknown attribute type %q", decl.Name)
		r.skip(decl.Line, "attribute "+decl.Name, "unknown attribute type")
		return
	}

	if !schema.Intersects(node.ParentTypes, at.Scope) {
		r.errs.Add(decl.Line, ErrAttributeOutOfScope,
			"attribute %q is scoped to %v, but %q has types %v",
			at.Name, at.Scope, node.BaseName, node.ParentTypes)
		r.skip(decl.Line, "attribute "+decl.Name, "out of scope")
		return
	}

	value, err := graph.ParseValue(at.ValueType, decl.RawValue)
	if err != nil {
		r.errs.Add(decl.Line, ErrInvalidAttributeValue,
			"attribute %q: %v (expected %s)", at.Name, err, at.ValueType)
		r.skip(decl.Line, "attribute "+decl.Name, "invalid value")
		return
	}

	attr := &graph.Attribute{
		ID:         graph.DeriveAttributeID(node.ID, morph.ID, at.Name),
		SourceID:   node.ID,
		Name:       at.Name,
		Value:      value,
		Unit:       decl.Unit,
		Modality:   decl.Modality,
		Quantifier: decl.Quantifier,
		MorphIDs:   []graph.MorphID{morph.ID},
	}

	for _, existing := range r.g.Attributes {
		if existing.ID != attr.ID {
			continue
		}
		if existing.Value.Equal(attr.Value) && existing.Unit == attr.Unit &&
			existing.Modality == attr.Modality && existing.Quantifier == attr.Quantifier {
			return // identical re-declaration
		}
		r.errs.Add(decl.Line, ErrDuplicateIdentity,
			"attribute %q on %q declared twice with conflicting values %q and %q",
			at.Name, node.BaseName, existing.Value.Raw, attr.Value.Raw)
		return
	}
	r.g.Attributes = append(r.g.Attributes, attr)
}

// resolveFunctions instantiates every function type in scope of each
// declared node, parsing its expression and checking that each
// referenced identifier resolves to a sibling attribute or another
// in-scope function.
func (r *Resolver) resolveFunctions(decls []*cnl.NodeDecl) []*FunctionInstance {
	var out []*FunctionInstance
	done := make(map[graph.NodeID]struct{}, len(decls))
	for _, decl := range decls {
		node, ok := r.g.NodeByKey(decl.BaseName, roleOf(decl.TypeNames))
		if !ok {
			continue
		}
		// Continuation blocks re-declare an already resolved node; its
		// functions were instantiated on the first declaration.
		if _, seen := done[node.ID]; seen {
			continue
		}
		done[node.ID] = struct{}{}
		inScope := r.schema.FunctionsInScope(node.ParentTypes)
		fnNames := make(map[string]struct{}, len(inScope))
		for _, fn := range inScope {
			fnNames[fn.Name] = struct{}{}
		}
		attrNames := make(map[string]struct{})
		for _, a := range r.g.AttributesOf(node.ID) {
			attrNames[a.Name] = struct{}{}
		}

		for _, fn := range inScope {
			expr, err := ParseExpression(fn.Expression)
			if err != nil {
				r.errs.Add(decl.Line, ErrSyntax, "function %q: %v", fn.Name, err)
				continue
			}
			resolved := true
			for _, ident := range expr.Identifiers() {
				if _, ok := attrNames[ident]; ok {
					continue
				}
				if _, ok := fnNames[ident]; ok {
					continue
				}
				r.errs.Add(decl.Line, ErrUnknownAttributeReference,
					"function %q references %q, which is not an attribute of %q", fn.Name, ident, node.BaseName)
				resolved = false
			}
			if !resolved {
				r.skip(decl.Line, "function "+fn.Name, "unresolved reference")
				continue
			}
			morph, _ := node.Morph(graph.DefaultMorphName)
			out = append(out, &FunctionInstance{
				Node:  node,
				Morph: morph.ID,
				Fn:    fn,
				Expr:  expr,
				Line:  decl.Line,
			})
		}
	}
	return out
}

func (r *Resolver) skip(line int, what, reason string) {
	r.skipped = append(r.skipped, SkippedDecl{Line: line, What: what, Reason: reason})
}
