package handlers

import (
	"context"

	"cnlgraph/application/ports"
	"cnlgraph/application/queries"
	"cnlgraph/domain/graph"

	"go.uber.org/zap"
)

// GetGraphHandler answers GetGraphQuery from the graph store.
type GetGraphHandler struct {
	store  ports.GraphStore
	logger *zap.Logger
}

// NewGetGraphHandler creates the handler.
func NewGetGraphHandler(store ports.GraphStore, logger *zap.Logger) *GetGraphHandler {
	return &GetGraphHandler{store: store, logger: logger}
}

// Handle loads the stored snapshot for the requested graph.
func (h *GetGraphHandler) Handle(ctx context.Context, q queries.GetGraphQuery) (*graph.Graph, error) {
	return h.store.LoadSnapshot(ctx, q.GraphID)
}

// ListGraphsHandler answers ListGraphsQuery.
type ListGraphsHandler struct {
	store ports.GraphStore
}

// NewListGraphsHandler creates the handler.
func NewListGraphsHandler(store ports.GraphStore) *ListGraphsHandler {
	return &ListGraphsHandler{store: store}
}

// Handle lists all stored graph ids.
func (h *ListGraphsHandler) Handle(ctx context.Context, _ queries.ListGraphsQuery) ([]string, error) {
	return h.store.ListGraphIDs(ctx)
}

// GetSchemaHandler answers GetSchemaQuery with the current definitions.
type GetSchemaHandler struct {
	store ports.SchemaStore
}

// NewGetSchemaHandler creates the handler.
func NewGetSchemaHandler(store ports.SchemaStore) *GetSchemaHandler {
	return &GetSchemaHandler{store: store}
}

// Handle pins a snapshot and projects it into the read model.
func (h *GetSchemaHandler) Handle(ctx context.Context, _ queries.GetSchemaQuery) (*queries.SchemaView, error) {
	snap, err := h.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &queries.SchemaView{
		NodeTypes:      snap.NodeTypes(),
		RelationTypes:  snap.RelationTypes(),
		AttributeTypes: snap.AttributeTypes(),
		FunctionTypes:  snap.FunctionTypes(),
	}, nil
}
