package compiler

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a compile error.
type ErrorKind string

const (
	// Syntax covers unclassifiable lines, malformed modifier tokens and
	// structural errors (declarations outside a node block).
	ErrSyntax ErrorKind = "Syntax"

	// Schema-resolution errors.
	ErrUnknownNodeType      ErrorKind = "UnknownNodeType"
	ErrUnknownRelationType  ErrorKind = "UnknownRelationType"
	ErrUnknownAttributeType ErrorKind = "UnknownAttributeType"
	ErrCyclicTypeHierarchy  ErrorKind = "CyclicTypeHierarchy"

	// Semantic errors.
	ErrDomainRangeViolation      ErrorKind = "DomainRangeViolation"
	ErrAttributeOutOfScope       ErrorKind = "AttributeOutOfScope"
	ErrInvalidAttributeValue     ErrorKind = "InvalidAttributeValue"
	ErrUnknownAttributeReference ErrorKind = "UnknownAttributeReference"
	ErrCircularDerivation        ErrorKind = "CircularDerivation"
	ErrUnknownNodeTarget         ErrorKind = "UnknownNodeTarget"

	// Diff conflicts.
	ErrDuplicateIdentity ErrorKind = "DuplicateIdentity"
)

// Fatal reports whether errors of this kind abort the compilation
// regardless of mode. A cyclic schema is unusable as a whole, and an
// identity collision makes the submission ambiguous.
func (k ErrorKind) Fatal() bool {
	return k == ErrCyclicTypeHierarchy || k == ErrDuplicateIdentity
}

// Error is one compile error tied to a 1-indexed source line. Line 0
// means the error is not tied to a specific line (schema-level errors).
type Error struct {
	Line    int       `json:"line"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrorList accumulates compile errors across pipeline stages.
type ErrorList []Error

// Add appends an error built from its parts.
func (l *ErrorList) Add(line int, kind ErrorKind, format string, args ...interface{}) {
	*l = append(*l, Error{Line: line, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// HasFatal reports whether any accumulated error is fatal in both modes.
func (l ErrorList) HasFatal() bool {
	for _, e := range l {
		if e.Kind.Fatal() {
			return true
		}
	}
	return false
}

// Error renders the whole list, one error per line.
func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}
