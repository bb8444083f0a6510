package schema

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports a cycle in the node type parent graph. The schema
// is unusable while the cycle exists, so callers treat this as fatal.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic type hierarchy: %s", strings.Join(e.Cycle, " -> "))
}

// Snapshot is an immutable bundle of schema definitions pinned for the
// duration of one compilation. The compiler only ever reads it; schema
// edits produce a new Snapshot.
type Snapshot struct {
	nodeTypes      map[string]NodeType
	relationTypes  map[string]RelationType
	attributeTypes map[string]AttributeType
	functionTypes  map[string]FunctionType

	// ancestry[name] holds the transitive closure over ParentTypes,
	// excluding name itself. Computed eagerly by NewSnapshot.
	ancestry map[string][]string
}

// NewSnapshot validates the definitions and precomputes type ancestry.
// A cycle in the parent graph returns a *CycleError.
func NewSnapshot(
	nodeTypes []NodeType,
	relationTypes []RelationType,
	attributeTypes []AttributeType,
	functionTypes []FunctionType,
) (*Snapshot, error) {
	s := &Snapshot{
		nodeTypes:      make(map[string]NodeType, len(nodeTypes)),
		relationTypes:  make(map[string]RelationType, len(relationTypes)),
		attributeTypes: make(map[string]AttributeType, len(attributeTypes)),
		functionTypes:  make(map[string]FunctionType, len(functionTypes)),
		ancestry:       make(map[string][]string, len(nodeTypes)),
	}

	for _, nt := range nodeTypes {
		if nt.Name == "" {
			return nil, fmt.Errorf("node type name required")
		}
		if _, dup := s.nodeTypes[nt.Name]; dup {
			return nil, fmt.Errorf("duplicate node type %q", nt.Name)
		}
		s.nodeTypes[nt.Name] = nt
	}
	for _, rt := range relationTypes {
		if err := rt.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.relationTypes[rt.Name]; dup {
			return nil, fmt.Errorf("duplicate relation type %q", rt.Name)
		}
		s.relationTypes[rt.Name] = rt
	}
	for _, at := range attributeTypes {
		if err := at.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.attributeTypes[at.Name]; dup {
			return nil, fmt.Errorf("duplicate attribute type %q", at.Name)
		}
		s.attributeTypes[at.Name] = at
	}
	for _, ft := range functionTypes {
		if ft.Name == "" {
			return nil, fmt.Errorf("function type name required")
		}
		if _, dup := s.functionTypes[ft.Name]; dup {
			return nil, fmt.Errorf("duplicate function type %q", ft.Name)
		}
		s.functionTypes[ft.Name] = ft
	}

	if err := s.computeAncestry(); err != nil {
		return nil, err
	}
	return s, nil
}

// NodeType returns the definition for name, if present.
func (s *Snapshot) NodeType(name string) (NodeType, bool) {
	nt, ok := s.nodeTypes[name]
	return nt, ok
}

// RelationType returns the definition for name, if present.
func (s *Snapshot) RelationType(name string) (RelationType, bool) {
	rt, ok := s.relationTypes[name]
	return rt, ok
}

// AttributeType returns the definition for name, if present.
func (s *Snapshot) AttributeType(name string) (AttributeType, bool) {
	at, ok := s.attributeTypes[name]
	return at, ok
}

// FunctionType returns the definition for name, if present.
func (s *Snapshot) FunctionType(name string) (FunctionType, bool) {
	ft, ok := s.functionTypes[name]
	return ft, ok
}

// NodeTypes returns all node type definitions sorted by name.
func (s *Snapshot) NodeTypes() []NodeType {
	out := make([]NodeType, 0, len(s.nodeTypes))
	for _, nt := range s.nodeTypes {
		out = append(out, nt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RelationTypes returns all relation type definitions sorted by name.
func (s *Snapshot) RelationTypes() []RelationType {
	out := make([]RelationType, 0, len(s.relationTypes))
	for _, rt := range s.relationTypes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AttributeTypes returns all attribute type definitions sorted by name.
func (s *Snapshot) AttributeTypes() []AttributeType {
	out := make([]AttributeType, 0, len(s.attributeTypes))
	for _, at := range s.attributeTypes {
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FunctionTypes returns all function type definitions sorted by name.
func (s *Snapshot) FunctionTypes() []FunctionType {
	out := make([]FunctionType, 0, len(s.functionTypes))
	for _, ft := range s.functionTypes {
		out = append(out, ft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ancestry returns the full ancestry of a declared type set: the
// declared names plus every transitive parent. Unknown names are
// passed through unchanged so callers can still intersect on them.
func (s *Snapshot) Ancestry(typeNames ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range typeNames {
		add(name)
		for _, parent := range s.ancestry[name] {
			add(parent)
		}
	}
	return out
}

// Intersects reports whether any member of ancestry appears in allowed.
// An empty allowed set means unrestricted.
func Intersects(ancestry, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	for _, t := range ancestry {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// FunctionsInScope returns every function type whose scope is empty or
// intersects the given ancestry, sorted by name for deterministic
// evaluation order.
func (s *Snapshot) FunctionsInScope(ancestry []string) []FunctionType {
	var out []FunctionType
	for _, ft := range s.functionTypes {
		if Intersects(ancestry, ft.Scope) {
			out = append(out, ft)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// computeAncestry walks the parent graph depth-first, memoizing the
// closure per type and detecting cycles.
func (s *Snapshot) computeAncestry() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(s.nodeTypes))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			// Trim the stack back to the first occurrence of name to
			// report just the cycle members.
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, stack[start:]...), name)
			return &CycleError{Cycle: cycle}
		}
		state[name] = visiting
		stack = append(stack, name)

		seen := make(map[string]struct{})
		var closure []string
		for _, parent := range s.nodeTypes[name].ParentTypes {
			if _, ok := s.nodeTypes[parent]; ok {
				if err := visit(parent); err != nil {
					return err
				}
			}
			if _, ok := seen[parent]; !ok {
				seen[parent] = struct{}{}
				closure = append(closure, parent)
			}
			for _, anc := range s.ancestry[parent] {
				if _, ok := seen[anc]; !ok {
					seen[anc] = struct{}{}
					closure = append(closure, anc)
				}
			}
		}

		s.ancestry[name] = closure
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	// Deterministic iteration keeps error messages stable.
	names := make([]string, 0, len(s.nodeTypes))
	for name := range s.nodeTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
