package cnl

import (
	"fmt"
	"strings"
)

// Parser consumes a classified line stream and builds the parse tree.
// It is stateful over the stream: relation and attribute lines attach
// to the current node and current morph, a node heading resets the
// morph context to the default morph.
type Parser struct {
	result  *ParseResult
	node    *NodeDecl
	morph   *MorphDecl
	capture *fenceCapture
}

type fenceCapture struct {
	graphLevel bool
	lines      []string
}

// Parse lexes and parses src in one pass.
func Parse(src string) *ParseResult {
	lines, lexErrs := Lex(src)
	p := &Parser{result: &ParseResult{Errors: lexErrs}}
	return p.parse(lines)
}

// ParseLines parses an already-classified line stream.
func ParseLines(lines []Line, lexErrs []Error) *ParseResult {
	p := &Parser{result: &ParseResult{Errors: lexErrs}}
	return p.parse(lines)
}

func (p *Parser) parse(lines []Line) *ParseResult {
	for _, line := range lines {
		switch line.Kind {
		case LineBlank, LineInvalid:
			// Invalid lines were already reported by the lexer.

		case LineNodeHeading:
			p.startNode(line)

		case LineMorphHeading:
			p.startMorph(line)

		case LineRelation:
			if p.morph == nil {
				p.errorf(line.Number, "relation %q declared before any node", line.RelationName)
				continue
			}
			p.morph.Relations = append(p.morph.Relations, &RelationDecl{
				Line:   line.Number,
				Name:   line.RelationName,
				Target: line.Target,
			})

		case LineAttribute:
			if p.morph == nil {
				p.errorf(line.Number, "attribute %q declared before any node", line.AttributeName)
				continue
			}
			mods := ExtractModifiers(line.ValueSegment)
			p.morph.Attributes = append(p.morph.Attributes, &AttributeDecl{
				Line:       line.Number,
				Name:       line.AttributeName,
				RawValue:   mods.Value,
				Adjective:  mods.Adjective,
				Quantifier: mods.Quantifier,
				Unit:       mods.Unit,
				Modality:   mods.Modality,
			})

		case LineFenceDescription:
			if p.node == nil {
				p.errorf(line.Number, "description fence before any node")
				p.capture = &fenceCapture{graphLevel: true}
				continue
			}
			p.capture = &fenceCapture{}

		case LineFenceGraphDescription:
			p.capture = &fenceCapture{graphLevel: true}

		case LineVerbatim:
			if p.capture != nil {
				p.capture.lines = append(p.capture.lines, line.Raw)
			}

		case LineFenceClose:
			p.closeFence()
		}
	}
	return p.result
}

func (p *Parser) startNode(line Line) {
	node := &NodeDecl{
		Line:      line.Number,
		Name:      line.Name,
		BaseName:  line.BaseName,
		Adjective: line.Adjective,
		TypeNames: line.TypeNames,
	}
	// Every node owns an implicit default morph; relations and
	// attributes land there until a morph heading appears.
	node.Morphs = []*MorphDecl{{Line: line.Number, Name: DefaultMorph}}
	p.result.Nodes = append(p.result.Nodes, node)
	p.node = node
	p.morph = node.Morphs[0]
}

func (p *Parser) startMorph(line Line) {
	if p.node == nil {
		p.errorf(line.Number, "morph heading %q before any node", line.MorphName)
		return
	}
	if line.MorphName == "" {
		p.errorf(line.Number, "morph heading has no name")
		return
	}
	if existing, ok := p.node.Morph(line.MorphName); ok {
		p.morph = existing
		return
	}
	morph := &MorphDecl{Line: line.Number, Name: line.MorphName}
	p.node.Morphs = append(p.node.Morphs, morph)
	p.morph = morph
}

func (p *Parser) closeFence() {
	if p.capture == nil {
		return
	}
	text := strings.TrimSpace(strings.Join(p.capture.lines, "\n"))
	if p.capture.graphLevel {
		if p.result.GraphDescription != "" {
			p.result.GraphDescription += "\n" + text
		} else {
			p.result.GraphDescription = text
		}
	} else if p.node != nil {
		if p.node.Description != "" {
			p.node.Description += "\n" + text
		} else {
			p.node.Description = text
		}
	}
	p.capture = nil
}

func (p *Parser) errorf(line int, format string, args ...interface{}) {
	p.result.Errors = append(p.result.Errors, Error{Line: line, Message: fmt.Sprintf(format, args...)})
}

// DefaultMorph names the implicit morph context of every node block.
const DefaultMorph = "default"
