package rest

import (
	"net/http"

	"cnlgraph/application/commands/bus"
	querybus "cnlgraph/application/queries/bus"
	"cnlgraph/infrastructure/config"
	"cnlgraph/interfaces/http/rest/handlers"
	"cnlgraph/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		cfg:        cfg,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg, rt.logger))

		compileHandler := handlers.NewCompileHandler(rt.commandBus, int64(rt.cfg.MaxSubmissionBytes), rt.logger)
		graphHandler := handlers.NewGraphHandler(rt.queryBus, rt.logger)
		schemaHandler := handlers.NewSchemaHandler(rt.queryBus, rt.logger)

		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", graphHandler.ListGraphs)
			r.Get("/{graphID}", graphHandler.GetGraph)
			r.Post("/{graphID}/compile", compileHandler.Compile)
		})

		r.Get("/schema", schemaHandler.GetSchema)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
