package cnl

// LineKind classifies one source line.
type LineKind int

const (
	LineBlank LineKind = iota
	LineNodeHeading
	LineMorphHeading
	LineRelation
	LineAttribute
	LineFenceDescription      // ```description
	LineFenceGraphDescription // ```graph-description
	LineFenceClose            // ```
	LineVerbatim              // any line inside an open fence
	LineInvalid
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineNodeHeading:
		return "node heading"
	case LineMorphHeading:
		return "morph heading"
	case LineRelation:
		return "relation"
	case LineAttribute:
		return "attribute"
	case LineFenceDescription:
		return "description fence"
	case LineFenceGraphDescription:
		return "graph description fence"
	case LineFenceClose:
		return "fence close"
	case LineVerbatim:
		return "verbatim"
	default:
		return "invalid"
	}
}

// Line is one classified source line. Numbering is 1-indexed for error
// reporting. The populated fields depend on Kind.
type Line struct {
	Number int
	Kind   LineKind
	Raw    string

	// LineNodeHeading
	Name      string   // display name, adjective markup stripped
	BaseName  string   // Name minus the leading adjective
	Adjective string   // from **..** markup in the heading
	TypeNames []string // from the [T1; T2] suffix

	// LineMorphHeading
	MorphName string

	// LineRelation
	RelationName string
	Target       string

	// LineAttribute
	AttributeName string
	ValueSegment  string // raw text after the colon, modifiers unextracted
}

// Modifiers are the inline tokens extracted from an attribute value
// segment.
type Modifiers struct {
	Value      string // the segment with all modifier markup removed
	Adjective  string // **..**
	Quantifier string // ++..++
	Unit       string // *..*
	Modality   string // [..]
}

// Error is a lexical or structural error tied to a source line.
type Error struct {
	Line    int
	Message string
}

func (e Error) Error() string { return e.Message }
