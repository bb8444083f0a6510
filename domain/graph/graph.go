package graph

import (
	"fmt"
	"sort"
)

// Node is a knowledge unit in a graph. Identity within a graph is the
// (BaseName, Role) pair; ID is derived from it and stays stable across
// recompilations.
type Node struct {
	ID          NodeID   `json:"id" dynamodbav:"ID"`
	BaseName    string   `json:"base_name" dynamodbav:"BaseName"`
	Name        string   `json:"name" dynamodbav:"Name"` // display form, may carry an adjective
	Role        string   `json:"role" dynamodbav:"Role"` // primary declared type; empty for untyped stubs
	ParentTypes []string `json:"parent_types,omitempty" dynamodbav:"ParentTypes,omitempty"`
	Description string   `json:"description,omitempty" dynamodbav:"Description,omitempty"`
	Morphs      []Morph  `json:"morphs" dynamodbav:"Morphs"`
}

// Morph is a named alternate perspective on a node. Every node owns an
// implicit default morph.
type Morph struct {
	ID   MorphID `json:"id" dynamodbav:"ID"`
	Name string  `json:"name" dynamodbav:"Name"`
}

// Key returns the identity key of a node within its graph.
func (n *Node) Key() string { return NodeKey(n.BaseName, n.Role) }

// NodeKey builds the identity key used for diff matching.
func NodeKey(baseName, role string) string {
	return baseName + "\x00" + role
}

// Morph returns the morph with the given name, if the node owns it.
func (n *Node) Morph(name string) (Morph, bool) {
	for _, m := range n.Morphs {
		if m.Name == name {
			return m, true
		}
	}
	return Morph{}, false
}

// MorphByID returns the morph with the given id, if the node owns it.
func (n *Node) MorphByID(id MorphID) (Morph, bool) {
	for _, m := range n.Morphs {
		if m.ID == id {
			return m, true
		}
	}
	return Morph{}, false
}

// EnsureMorph returns the morph with the given name, minting it if absent.
func (n *Node) EnsureMorph(name string) Morph {
	if m, ok := n.Morph(name); ok {
		return m
	}
	m := Morph{ID: DeriveMorphID(n.ID, name), Name: name}
	n.Morphs = append(n.Morphs, m)
	return m
}

// Relation is a typed edge between two nodes, scoped to a morph of its
// source node.
type Relation struct {
	ID       string    `json:"id" dynamodbav:"ID"`
	SourceID NodeID    `json:"source_id" dynamodbav:"SourceID"`
	TargetID NodeID    `json:"target_id" dynamodbav:"TargetID"`
	Name     string    `json:"name" dynamodbav:"Name"`
	MorphIDs []MorphID `json:"morph_ids" dynamodbav:"MorphIDs"`
}

// Attribute is a typed value attached to a node, scoped to a morph.
type Attribute struct {
	ID         string    `json:"id" dynamodbav:"ID"`
	SourceID   NodeID    `json:"source_id" dynamodbav:"SourceID"`
	Name       string    `json:"name" dynamodbav:"Name"`
	Value      Value     `json:"value" dynamodbav:"Value"`
	Unit       string    `json:"unit,omitempty" dynamodbav:"Unit,omitempty"`
	Modality   string    `json:"modality,omitempty" dynamodbav:"Modality,omitempty"`
	Quantifier string    `json:"quantifier,omitempty" dynamodbav:"Quantifier,omitempty"`
	IsDerived  bool      `json:"is_derived" dynamodbav:"IsDerived"`
	Derivation string    `json:"derivation,omitempty" dynamodbav:"Derivation,omitempty"` // expression fingerprint for derived values
	MorphIDs   []MorphID `json:"morph_ids" dynamodbav:"MorphIDs"`
}

// Graph is one compiled or stored knowledge graph snapshot.
type Graph struct {
	ID          string       `json:"id"`
	Description string       `json:"description,omitempty"`
	Nodes       []*Node      `json:"nodes"`
	Relations   []*Relation  `json:"relations"`
	Attributes  []*Attribute `json:"attributes"`
}

// NewGraph returns an empty graph snapshot.
func NewGraph(id string) *Graph {
	return &Graph{ID: id}
}

// NodeByKey looks a node up by its identity key.
func (g *Graph) NodeByKey(baseName, role string) (*Node, bool) {
	key := NodeKey(baseName, role)
	for _, n := range g.Nodes {
		if n.Key() == key {
			return n, true
		}
	}
	return nil, false
}

// NodeByBaseName returns the first node with the given base name,
// regardless of role.
func (g *Graph) NodeByBaseName(baseName string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.BaseName == baseName {
			return n, true
		}
	}
	return nil, false
}

// NodeByID looks a node up by id.
func (g *Graph) NodeByID(id NodeID) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// AttributesOf returns the attributes attached to a node, sorted by name.
func (g *Graph) AttributesOf(nodeID NodeID) []*Attribute {
	var out []*Attribute
	for _, a := range g.Attributes {
		if a.SourceID == nodeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RelationsOf returns the relations whose source is the given node.
func (g *Graph) RelationsOf(nodeID NodeID) []*Relation {
	var out []*Relation
	for _, r := range g.Relations {
		if r.SourceID == nodeID {
			out = append(out, r)
		}
	}
	return out
}

// AddNode appends a node, rejecting identity collisions.
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.NodeByKey(n.BaseName, n.Role); exists {
		return fmt.Errorf("node %q with role %q already present", n.BaseName, n.Role)
	}
	g.Nodes = append(g.Nodes, n)
	return nil
}
