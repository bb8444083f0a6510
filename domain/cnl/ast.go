package cnl

// ParseResult is the parse tree for one CNL submission: an ordered list
// of node declarations plus graph-level metadata.
type ParseResult struct {
	GraphDescription string
	Nodes            []*NodeDecl
	Errors           []Error
}

// NodeDecl is one `# Name [Types]` block with everything declared under
// it, grouped by morph. Morphs[0] is always the implicit default morph.
type NodeDecl struct {
	Line        int
	Name        string // display form
	BaseName    string
	Adjective   string
	TypeNames   []string
	Description string
	Morphs      []*MorphDecl
}

// MorphDecl groups the relations and attributes declared under one
// morph heading (or under no heading, for the default morph).
type MorphDecl struct {
	Line       int
	Name       string
	Relations  []*RelationDecl
	Attributes []*AttributeDecl
}

// RelationDecl is one `<name> Target;` line.
type RelationDecl struct {
	Line   int
	Name   string
	Target string
}

// AttributeDecl is one `has name: value;` line with its extracted
// modifiers.
type AttributeDecl struct {
	Line       int
	Name       string
	RawValue   string // value text with modifier markup removed
	Adjective  string
	Quantifier string
	Unit       string
	Modality   string
}

// Morph returns the morph declaration with the given name, if present.
func (n *NodeDecl) Morph(name string) (*MorphDecl, bool) {
	for _, m := range n.Morphs {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}
