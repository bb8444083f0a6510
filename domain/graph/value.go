package graph

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cnlgraph/domain/schema"
)

var integerPattern = regexp.MustCompile(`^-?\d+$`)

// Value is a typed attribute value. Parsing is explicit per value type;
// a literal that does not fit its declared type is an error, never a
// silent fallback to string.
type Value struct {
	Type schema.ValueType `json:"type" dynamodbav:"Type"`
	Raw  string           `json:"raw" dynamodbav:"Raw"`

	Int   int64     `json:"int,omitempty" dynamodbav:"Int,omitempty"`
	Float float64   `json:"float,omitempty" dynamodbav:"Float,omitempty"`
	Bool  bool      `json:"bool,omitempty" dynamodbav:"Bool,omitempty"`
	Time  time.Time `json:"time,omitempty" dynamodbav:"Time,omitempty"`
}

// ParseValue parses raw against the declared value type.
func ParseValue(vt schema.ValueType, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch vt {
	case schema.ValueString:
		return Value{Type: vt, Raw: raw}, nil
	case schema.ValueInteger:
		return parseInteger(raw)
	case schema.ValueFloat:
		return parseFloat(raw)
	case schema.ValueDate:
		return parseDate(raw)
	case schema.ValueBoolean:
		return parseBoolean(raw)
	default:
		return Value{}, fmt.Errorf("unknown value type %q", vt)
	}
}

func parseInteger(raw string) (Value, error) {
	if !integerPattern.MatchString(raw) {
		return Value{}, fmt.Errorf("%q is not an integer", raw)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%q is not an integer", raw)
	}
	return Value{Type: schema.ValueInteger, Raw: raw, Int: n}, nil
}

func parseFloat(raw string) (Value, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, fmt.Errorf("%q is not a finite number", raw)
	}
	return Value{Type: schema.ValueFloat, Raw: raw, Float: f}, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(raw string) (Value, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return Value{Type: schema.ValueDate, Raw: raw, Time: ts}, nil
		}
	}
	return Value{}, fmt.Errorf("%q is not a calendar date", raw)
}

func parseBoolean(raw string) (Value, error) {
	switch strings.ToLower(raw) {
	case "true":
		return Value{Type: schema.ValueBoolean, Raw: raw, Bool: true}, nil
	case "false":
		return Value{Type: schema.ValueBoolean, Raw: raw, Bool: false}, nil
	}
	return Value{}, fmt.Errorf("%q is not a boolean", raw)
}

// FloatValue wraps a computed number, used for derived attributes.
func FloatValue(f float64) Value {
	return Value{
		Type:  schema.ValueFloat,
		Raw:   strconv.FormatFloat(f, 'g', -1, 64),
		Float: f,
	}
}

// Number returns the numeric interpretation of the value, when it has one.
func (v Value) Number() (float64, bool) {
	switch v.Type {
	case schema.ValueInteger:
		return float64(v.Int), true
	case schema.ValueFloat:
		return v.Float, true
	}
	return 0, false
}

// Equal reports whether two values are identical in type and content.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case schema.ValueInteger:
		return v.Int == o.Int
	case schema.ValueFloat:
		return v.Float == o.Float
	case schema.ValueBoolean:
		return v.Bool == o.Bool
	case schema.ValueDate:
		return v.Time.Equal(o.Time)
	default:
		return v.Raw == o.Raw
	}
}

// String returns the canonical textual form.
func (v Value) String() string { return v.Raw }
