package di

import (
	"context"
	"fmt"
	"time"

	"cnlgraph/application/commands"
	"cnlgraph/application/commands/bus"
	commands_handlers "cnlgraph/application/commands/handlers"
	"cnlgraph/application/ports"
	"cnlgraph/application/queries"
	querybus "cnlgraph/application/queries/bus"
	queries_handlers "cnlgraph/application/queries/handlers"
	"cnlgraph/infrastructure/config"
	"cnlgraph/infrastructure/messaging/eventbridge"
	"cnlgraph/infrastructure/persistence/dynamodb"
	"cnlgraph/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideSchemaStore creates the schema store with a short-lived
// snapshot cache in front of DynamoDB
func ProvideSchemaStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SchemaStore {
	store := dynamodb.NewSchemaStore(client, cfg.SchemaTable, logger)
	return NewCachedSchemaStore(store, 30*time.Second)
}

// ProvideGraphStore creates the graph store
func ProvideGraphStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.GraphStore {
	return dynamodb.NewGraphStore(client, cfg.DynamoDBTable, logger)
}

// ProvideCompileLock creates the per-graph compile lock
func ProvideCompileLock(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.CompileLock {
	return dynamodb.NewCompileLock(client, cfg.DynamoDBTable, logger)
}

// ProvideEventBus creates the compile event publisher
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the metrics publisher, nil when disabled
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	namespace := fmt.Sprintf("CNLGraph/%s", cfg.Environment)
	return observability.NewMetrics(client, namespace, logger)
}

// ProvideTracer creates the tracer, nil when disabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("cnlgraph")
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	schemaStore ports.SchemaStore,
	graphStore ports.GraphStore,
	compileLock ports.CompileLock,
	eventBus ports.EventBus,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	cfg *config.Config,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(logger)

	orchestrator := commands_handlers.NewCompileOrchestrator(
		schemaStore,
		graphStore,
		compileLock,
		eventBus,
		metrics,
		tracer,
		logger,
		cfg.CompileLockTTL,
	)

	err := commandBus.Register(commands.CompileGraphCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			compileCmd, ok := cmd.(commands.CompileGraphCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type %T", cmd)
			}
			return orchestrator.Handle(ctx, compileCmd)
		},
	))
	if err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	schemaStore ports.SchemaStore,
	graphStore ports.GraphStore,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(logger)

	getGraphHandler := queries_handlers.NewGetGraphHandler(graphStore, logger)
	if err := queryBus.Register(queries.GetGraphQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetGraphQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return getGraphHandler.Handle(ctx, q)
		},
	)); err != nil {
		return nil, err
	}

	listGraphsHandler := queries_handlers.NewListGraphsHandler(graphStore)
	if err := queryBus.Register(queries.ListGraphsQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListGraphsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return listGraphsHandler.Handle(ctx, q)
		},
	)); err != nil {
		return nil, err
	}

	getSchemaHandler := queries_handlers.NewGetSchemaHandler(schemaStore)
	if err := queryBus.Register(queries.GetSchemaQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetSchemaQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return getSchemaHandler.Handle(ctx, q)
		},
	)); err != nil {
		return nil, err
	}

	return queryBus, nil
}
