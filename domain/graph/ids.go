package graph

import (
	"github.com/google/uuid"
)

// Identity namespace for content-derived ids. Deriving ids from content
// keeps them stable across recompilations so the diff engine can match
// unchanged entities without positional bookkeeping.
var idNamespace = uuid.MustParse("8f1aa2b4-6a0c-4f5e-9d3a-54c2f0b7e911")

// NodeID identifies a node within a graph.
type NodeID string

func (id NodeID) String() string { return string(id) }

// DeriveNodeID produces a stable NodeID from the node's identity key
// (base name and primary role) within a graph.
func DeriveNodeID(graphID, baseName, role string) NodeID {
	return NodeID(derive("node", graphID, baseName, role))
}

// MorphID identifies a morph on a node. The newtype keeps loose string
// morph references out of the model: a relation or attribute can only
// carry morph ids minted by its owning node.
type MorphID string

func (id MorphID) String() string { return string(id) }

// DefaultMorphName names the implicit morph every node owns.
const DefaultMorphName = "default"

// DeriveMorphID produces a stable MorphID scoped to its owning node.
func DeriveMorphID(nodeID NodeID, morphName string) MorphID {
	return MorphID(derive("morph", string(nodeID), morphName))
}

// DeriveRelationID produces a stable id from a relation's identity key.
func DeriveRelationID(sourceID NodeID, morphID MorphID, name string, targetID NodeID) string {
	return derive("relation", string(sourceID), string(morphID), name, string(targetID))
}

// DeriveAttributeID produces a stable id from an attribute's identity key.
func DeriveAttributeID(sourceID NodeID, morphID MorphID, name string) string {
	return derive("attribute", string(sourceID), string(morphID), name)
}

func derive(parts ...string) string {
	// NUL-joined to keep ("ab","c") distinct from ("a","bc").
	buf := make([]byte, 0, 64)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, p...)
	}
	return uuid.NewSHA1(idNamespace, buf).String()
}
