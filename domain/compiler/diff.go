package compiler

import (
	"reflect"
	"sort"

	"cnlgraph/domain/graph"
)

// Diff compares the compiled graph against the prior stored snapshot
// and produces the minimal ordered change list. Deletion by omission is
// scoped to the morphs touched by this submission: entities under
// morphs (or nodes) the submission never mentions are left untouched.
// Deletes precede creates so applying the list never passes through a
// transient duplicate-identity state.
func Diff(next, prior *graph.Graph) graph.ChangeList {
	if prior == nil {
		prior = graph.NewGraph(next.ID)
	}

	var deletes, creates, updates graph.ChangeList

	// Morph scopes touched by this submission. Morph ids are derived
	// from the owning node's stable id, so prior and next agree on them.
	touched := make(map[graph.MorphID]struct{})
	for _, n := range next.Nodes {
		for _, m := range n.Morphs {
			touched[m.ID] = struct{}{}
		}
	}

	// Nodes. A node absent from the submission is untouched; a node in
	// both keeps its identity and surfaces field changes as an update.
	priorNodes := make(map[graph.NodeID]*graph.Node, len(prior.Nodes))
	for _, n := range prior.Nodes {
		priorNodes[n.ID] = n
	}
	for _, n := range next.Nodes {
		old, exists := priorNodes[n.ID]
		if !exists {
			creates = append(creates, graph.Change{Op: graph.OpCreate, Kind: graph.KindNode, Node: n})
			continue
		}
		merged := mergeNode(n, old)
		if !nodeEqual(merged, old) {
			updates = append(updates, graph.Change{Op: graph.OpUpdate, Kind: graph.KindNode, Node: merged})
		}
	}

	// Relations: identity is the derived id (source, morph, name,
	// target); there is nothing to update, only membership changes.
	priorRels := make(map[string]*graph.Relation, len(prior.Relations))
	for _, r := range prior.Relations {
		priorRels[r.ID] = r
	}
	nextRels := make(map[string]struct{}, len(next.Relations))
	for _, r := range next.Relations {
		nextRels[r.ID] = struct{}{}
		if _, exists := priorRels[r.ID]; !exists {
			creates = append(creates, graph.Change{Op: graph.OpCreate, Kind: graph.KindRelation, Relation: r})
		}
	}
	for _, r := range prior.Relations {
		if _, kept := nextRels[r.ID]; kept {
			continue
		}
		if inTouchedScope(r.MorphIDs, touched) {
			deletes = append(deletes, graph.Change{Op: graph.OpDelete, Kind: graph.KindRelation, Relation: r})
		}
	}

	// Attributes: identity is (source, morph, name); value and modifier
	// changes are updates.
	priorAttrs := make(map[string]*graph.Attribute, len(prior.Attributes))
	for _, a := range prior.Attributes {
		priorAttrs[a.ID] = a
	}
	nextAttrs := make(map[string]struct{}, len(next.Attributes))
	for _, a := range next.Attributes {
		nextAttrs[a.ID] = struct{}{}
		old, exists := priorAttrs[a.ID]
		if !exists {
			creates = append(creates, graph.Change{Op: graph.OpCreate, Kind: graph.KindAttribute, Attribute: a})
			continue
		}
		if !attributeEqual(a, old) {
			updates = append(updates, graph.Change{Op: graph.OpUpdate, Kind: graph.KindAttribute, Attribute: a})
		}
	}
	for _, a := range prior.Attributes {
		if _, kept := nextAttrs[a.ID]; kept {
			continue
		}
		if inTouchedScope(a.MorphIDs, touched) {
			deletes = append(deletes, graph.Change{Op: graph.OpDelete, Kind: graph.KindAttribute, Attribute: a})
		}
	}

	out := make(graph.ChangeList, 0, len(deletes)+len(creates)+len(updates))
	out = append(out, deletes...)
	out = append(out, creates...)
	out = append(out, updates...)
	return out
}

func inTouchedScope(morphs []graph.MorphID, touched map[graph.MorphID]struct{}) bool {
	for _, m := range morphs {
		if _, ok := touched[m]; ok {
			return true
		}
	}
	return false
}

// mergeNode folds the prior node's untouched morphs into the updated
// node so a morph-scoped edit never drops sibling morphs.
func mergeNode(next, old *graph.Node) *graph.Node {
	merged := *next
	merged.Morphs = append([]graph.Morph{}, next.Morphs...)
	for _, m := range old.Morphs {
		if _, ok := merged.MorphByID(m.ID); !ok {
			merged.Morphs = append(merged.Morphs, m)
		}
	}
	sort.Slice(merged.Morphs, func(i, j int) bool {
		// Default morph stays first; the rest sort by name.
		if merged.Morphs[i].Name == graph.DefaultMorphName {
			return true
		}
		if merged.Morphs[j].Name == graph.DefaultMorphName {
			return false
		}
		return merged.Morphs[i].Name < merged.Morphs[j].Name
	})
	return &merged
}

func nodeEqual(a, b *graph.Node) bool {
	if a.Name != b.Name || a.Role != b.Role || a.Description != b.Description {
		return false
	}
	if !sameStringSet(a.ParentTypes, b.ParentTypes) {
		return false
	}
	if len(a.Morphs) != len(b.Morphs) {
		return false
	}
	for _, m := range a.Morphs {
		if _, ok := b.MorphByID(m.ID); !ok {
			return false
		}
	}
	return true
}

func attributeEqual(a, b *graph.Attribute) bool {
	return a.Value.Equal(b.Value) &&
		a.Unit == b.Unit &&
		a.Modality == b.Modality &&
		a.Quantifier == b.Quantifier &&
		a.IsDerived == b.IsDerived &&
		a.Derivation == b.Derivation
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	return reflect.DeepEqual(as, bs)
}
