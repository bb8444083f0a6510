package handlers

import (
	"net/http"

	"cnlgraph/application/queries"
	querybus "cnlgraph/application/queries/bus"
	"cnlgraph/pkg/common"

	"go.uber.org/zap"
)

// SchemaHandler handles schema read requests
type SchemaHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewSchemaHandler creates a new schema handler
func NewSchemaHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// GetSchema handles GET /schema
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetSchemaQuery{})
	if err != nil {
		h.logger.Error("failed to load schema", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "failed to load schema")
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
