package handlers

import (
	"encoding/json"
	"net/http"

	"cnlgraph/application/commands"
	"cnlgraph/application/commands/bus"
	commands_handlers "cnlgraph/application/commands/handlers"
	"cnlgraph/pkg/auth"
	"cnlgraph/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CompileHandler handles CNL compilation requests
type CompileHandler struct {
	commandBus *bus.CommandBus
	maxBytes   int64
	logger     *zap.Logger
}

// NewCompileHandler creates a new compile handler
func NewCompileHandler(commandBus *bus.CommandBus, maxBytes int64, logger *zap.Logger) *CompileHandler {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &CompileHandler{
		commandBus: commandBus,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

type compileRequest struct {
	Text                 string `json:"text"`
	Strict               bool   `json:"strict"`
	AllowImplicitTargets bool   `json:"allow_implicit_targets"`
}

// Compile handles POST /graphs/{graphID}/compile
func (h *CompileHandler) Compile(w http.ResponseWriter, r *http.Request) {
	graphID := chi.URLParam(r, "graphID")
	if graphID == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "graph id is required")
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.CompileGraphCommand{
		GraphID:              graphID,
		UserID:               user.UserID,
		Text:                 req.Text,
		Strict:               req.Strict,
		AllowImplicitTargets: req.AllowImplicitTargets,
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.logger.Error("compile submission failed",
			zap.String("graphID", graphID),
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
		common.RespondError(w, http.StatusConflict, "COMPILE_UNAVAILABLE", err.Error())
		return
	}

	outcome, ok := result.(*commands_handlers.CompileOutcome)
	if !ok {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "unexpected compile result")
		return
	}

	// A rejected compilation is a well-formed outcome, not a transport
	// error: the client gets the full error list either way.
	status := http.StatusOK
	if !outcome.Applied {
		status = http.StatusUnprocessableEntity
	}
	common.RespondJSON(w, status, outcome)
}
