package cnl

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	fencePattern     = regexp.MustCompile("^```([\\w-]*)\\s*$")
	headingPattern   = regexp.MustCompile(`^(#+)\s+(.+)$`)
	typeListPattern  = regexp.MustCompile(`^(.*?)\s*\[([^\]\[]+)\]\s*$`)
	relationPattern  = regexp.MustCompile(`^<([^<>]+)>\s*(.+?)\s*;?\s*$`)
	attributePattern = regexp.MustCompile(`^has\s+([^:]+?)\s*:\s*(.+?)\s*;?\s*$`)

	adjectivePattern  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	quantifierPattern = regexp.MustCompile(`\+\+([^+]+)\+\+`)
	modalityPattern   = regexp.MustCompile(`\[([^\]\[]+)\]`)
	unitPattern       = regexp.MustCompile(`\*([^*]+)\*`)
)

// Lex splits src into lines and classifies each one. Lines inside a
// description fence are passed through as verbatim; any line matching
// no rule outside a fence is a syntax error tied to its 1-indexed
// line number.
func Lex(src string) ([]Line, []Error) {
	rawLines := strings.Split(src, "\n")
	// A trailing newline terminates the last line; it does not open a
	// phantom blank one.
	if n := len(rawLines); n > 0 && rawLines[n-1] == "" {
		rawLines = rawLines[:n-1]
	}
	lines := make([]Line, 0, len(rawLines))
	var errs []Error

	inFence := false
	for i, raw := range rawLines {
		num := i + 1
		line := Line{Number: num, Raw: raw}
		trimmed := strings.TrimSpace(raw)

		if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
			switch {
			case inFence && m[1] == "":
				line.Kind = LineFenceClose
				inFence = false
			case inFence:
				// A fence marker with a language inside an open fence is
				// just captured text.
				line.Kind = LineVerbatim
			case m[1] == "description":
				line.Kind = LineFenceDescription
				inFence = true
			case m[1] == "graph-description":
				line.Kind = LineFenceGraphDescription
				inFence = true
			default:
				line.Kind = LineInvalid
				errs = append(errs, Error{Line: num, Message: fmt.Sprintf("unknown fence %q", trimmed)})
			}
			lines = append(lines, line)
			continue
		}

		if inFence {
			line.Kind = LineVerbatim
			lines = append(lines, line)
			continue
		}

		switch {
		case trimmed == "":
			line.Kind = LineBlank

		case strings.HasPrefix(trimmed, "#"):
			m := headingPattern.FindStringSubmatch(trimmed)
			if m == nil {
				line.Kind = LineInvalid
				errs = append(errs, Error{Line: num, Message: "heading has no name"})
				break
			}
			if len(m[1]) == 2 {
				// "##" is reserved for morph headings; every other depth
				// declares a node.
				line.Kind = LineMorphHeading
				line.MorphName = strings.TrimSpace(m[2])
				break
			}
			line.Kind = LineNodeHeading
			body := strings.TrimSpace(m[2])
			if tm := typeListPattern.FindStringSubmatch(body); tm != nil {
				body = strings.TrimSpace(tm[1])
				for _, t := range strings.Split(tm[2], ";") {
					if t = strings.TrimSpace(t); t != "" {
						line.TypeNames = append(line.TypeNames, t)
					}
				}
			}
			line.Adjective, line.Name, line.BaseName = splitHeadingName(body)
			if line.BaseName == "" {
				line.Kind = LineInvalid
				errs = append(errs, Error{Line: num, Message: "node heading has no name"})
			}

		case strings.HasPrefix(trimmed, "<"):
			m := relationPattern.FindStringSubmatch(trimmed)
			if m == nil {
				line.Kind = LineInvalid
				errs = append(errs, Error{Line: num, Message: fmt.Sprintf("malformed relation %q", trimmed)})
				break
			}
			line.Kind = LineRelation
			line.RelationName = strings.TrimSpace(m[1])
			line.Target = strings.TrimSpace(m[2])

		case strings.HasPrefix(trimmed, "has "):
			m := attributePattern.FindStringSubmatch(trimmed)
			if m == nil {
				line.Kind = LineInvalid
				errs = append(errs, Error{Line: num, Message: fmt.Sprintf("malformed attribute %q", trimmed)})
				break
			}
			line.Kind = LineAttribute
			line.AttributeName = strings.TrimSpace(m[1])
			line.ValueSegment = m[2]

		default:
			line.Kind = LineInvalid
			errs = append(errs, Error{Line: num, Message: fmt.Sprintf("unrecognized line %q", trimmed)})
		}
		lines = append(lines, line)
	}

	if inFence {
		errs = append(errs, Error{Line: len(rawLines), Message: "unterminated description fence"})
	}
	return lines, errs
}

// ExtractModifiers pulls the inline modifier tokens out of an attribute
// value segment: **adjective**, ++quantifier++, *unit*, [modality].
// Adjectives are extracted before units so "**" never reads as an empty
// unit pair.
func ExtractModifiers(segment string) Modifiers {
	var mods Modifiers
	rest := segment

	rest = extractFirst(rest, adjectivePattern, &mods.Adjective)
	rest = extractFirst(rest, quantifierPattern, &mods.Quantifier)
	rest = extractFirst(rest, modalityPattern, &mods.Modality)
	rest = extractFirst(rest, unitPattern, &mods.Unit)

	mods.Value = strings.Join(strings.Fields(rest), " ")
	return mods
}

func extractFirst(s string, re *regexp.Regexp, dst *string) string {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	*dst = strings.TrimSpace(s[m[2]:m[3]])
	return s[:m[0]] + " " + s[m[1]:]
}

// splitHeadingName separates an optional leading **adjective** from a
// heading name, returning (adjective, display name, base name).
func splitHeadingName(body string) (adjective, name, base string) {
	if m := adjectivePattern.FindStringSubmatch(body); m != nil {
		adjective = strings.TrimSpace(m[1])
	}
	// Display form keeps the adjective text, just without the markup.
	name = strings.Join(strings.Fields(adjectivePattern.ReplaceAllString(body, "$1")), " ")
	base = name
	if adjective != "" {
		base = strings.Join(strings.Fields(strings.Replace(name, adjective, "", 1)), " ")
	}
	return adjective, name, base
}
