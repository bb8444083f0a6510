package schema

import "fmt"

// ValueType enumerates the value types an attribute may carry.
type ValueType string

const (
	ValueString  ValueType = "string"
	ValueInteger ValueType = "integer"
	ValueFloat   ValueType = "float"
	ValueDate    ValueType = "date"
	ValueBoolean ValueType = "boolean"
)

// Valid reports whether v is one of the known value types.
func (v ValueType) Valid() bool {
	switch v {
	case ValueString, ValueInteger, ValueFloat, ValueDate, ValueBoolean:
		return true
	}
	return false
}

// NodeType defines a node type in the user-defined type hierarchy.
// ParentTypes allows multiple inheritance; ancestry is the transitive
// closure over it.
type NodeType struct {
	Name        string   `json:"name" dynamodbav:"Name"`
	Description string   `json:"description,omitempty" dynamodbav:"Description,omitempty"`
	ParentTypes []string `json:"parent_types,omitempty" dynamodbav:"ParentTypes,omitempty"`
}

// RelationType defines a typed relation between nodes.
// Empty Domain or Range means unrestricted.
type RelationType struct {
	Name        string   `json:"name" dynamodbav:"Name"`
	InverseName string   `json:"inverse_name,omitempty" dynamodbav:"InverseName,omitempty"`
	Symmetric   bool     `json:"symmetric" dynamodbav:"Symmetric"`
	Transitive  bool     `json:"transitive" dynamodbav:"Transitive"`
	Domain      []string `json:"domain,omitempty" dynamodbav:"Domain,omitempty"`
	Range       []string `json:"range,omitempty" dynamodbav:"Range,omitempty"`
}

// Validate checks the RelationType invariants.
func (rt RelationType) Validate() error {
	if rt.Name == "" {
		return fmt.Errorf("relation type name required")
	}
	if rt.Symmetric && rt.InverseName != "" && rt.InverseName != rt.Name {
		return fmt.Errorf("symmetric relation type %q must have inverse equal to its own name or unset", rt.Name)
	}
	return nil
}

// AttributeType defines a typed attribute. Empty Scope means the
// attribute may be declared on any node type.
type AttributeType struct {
	Name      string    `json:"name" dynamodbav:"Name"`
	ValueType ValueType `json:"value_type" dynamodbav:"ValueType"`
	Scope     []string  `json:"scope,omitempty" dynamodbav:"Scope,omitempty"`
}

// Validate checks the AttributeType invariants.
func (at AttributeType) Validate() error {
	if at.Name == "" {
		return fmt.Errorf("attribute type name required")
	}
	if !at.ValueType.Valid() {
		return fmt.Errorf("attribute type %q has unknown value type %q", at.Name, at.ValueType)
	}
	return nil
}

// FunctionType defines a derived attribute computed from an arithmetic
// expression over sibling attribute names.
type FunctionType struct {
	Name       string   `json:"name" dynamodbav:"Name"`
	Expression string   `json:"expression" dynamodbav:"Expression"`
	Scope      []string `json:"scope,omitempty" dynamodbav:"Scope,omitempty"`
}
