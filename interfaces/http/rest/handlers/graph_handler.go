package handlers

import (
	"net/http"

	"cnlgraph/application/queries"
	querybus "cnlgraph/application/queries/bus"
	"cnlgraph/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GraphHandler handles graph read requests
type GraphHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// GetGraph handles GET /graphs/{graphID}
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	graphID := chi.URLParam(r, "graphID")
	if graphID == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "graph id is required")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetGraphQuery{GraphID: graphID})
	if err != nil {
		h.logger.Error("failed to load graph",
			zap.String("graphID", graphID),
			zap.Error(err),
		)
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "failed to load graph")
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ListGraphs handles GET /graphs
func (h *GraphHandler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListGraphsQuery{})
	if err != nil {
		h.logger.Error("failed to list graphs", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "failed to list graphs")
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
