//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"cnlgraph/application/commands/bus"
	"cnlgraph/application/ports"
	querybus "cnlgraph/application/queries/bus"
	"cnlgraph/infrastructure/config"
	"cnlgraph/pkg/observability"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	SchemaStore ports.SchemaStore
	GraphStore  ports.GraphStore
	CompileLock ports.CompileLock
	EventBus    ports.EventBus
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideSchemaStore,
	ProvideGraphStore,
	ProvideCompileLock,
	ProvideEventBus,
	ProvideMetrics,
	ProvideTracer,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
