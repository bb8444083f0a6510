package graph

// ChangeOp is the kind of mutation a change applies.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// EntityKind names the entity a change targets.
type EntityKind string

const (
	KindNode      EntityKind = "node"
	KindRelation  EntityKind = "relation"
	KindAttribute EntityKind = "attribute"
)

// Change is one node/relation/attribute mutation. Exactly one of Node,
// Relation, Attribute is set, matching Kind.
type Change struct {
	Op        ChangeOp   `json:"op"`
	Kind      EntityKind `json:"kind"`
	Node      *Node      `json:"node,omitempty"`
	Relation  *Relation  `json:"relation,omitempty"`
	Attribute *Attribute `json:"attribute,omitempty"`
}

// ChangeList is an ordered list of mutations. The diff engine emits
// deletes before creates so applying the list never passes through a
// transient duplicate-identity state.
type ChangeList []Change

// Counts tallies the list per operation.
func (cl ChangeList) Counts() (creates, updates, deletes int) {
	for _, c := range cl {
		switch c.Op {
		case OpCreate:
			creates++
		case OpUpdate:
			updates++
		case OpDelete:
			deletes++
		}
	}
	return
}

// Empty reports whether the list carries no mutations.
func (cl ChangeList) Empty() bool { return len(cl) == 0 }
