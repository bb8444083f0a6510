package queries

import "cnlgraph/domain/schema"

// GetSchemaQuery fetches the current schema definitions.
type GetSchemaQuery struct{}

// Validate implements bus.Query.
func (q GetSchemaQuery) Validate() error { return nil }

// SchemaView is the read model returned for a schema query.
type SchemaView struct {
	NodeTypes      []schema.NodeType      `json:"node_types"`
	RelationTypes  []schema.RelationType  `json:"relation_types"`
	AttributeTypes []schema.AttributeType `json:"attribute_types"`
	FunctionTypes  []schema.FunctionType  `json:"function_types"`
}
