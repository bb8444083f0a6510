package queries

import "cnlgraph/pkg/utils"

// GetGraphQuery fetches the stored snapshot of one graph.
type GetGraphQuery struct {
	GraphID string `json:"graph_id" validate:"required"`
}

// Validate implements bus.Query.
func (q GetGraphQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListGraphsQuery lists the ids of all stored graphs.
type ListGraphsQuery struct{}

// Validate implements bus.Query.
func (q ListGraphsQuery) Validate() error { return nil }
