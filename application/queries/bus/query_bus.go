package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Query is a read-only request. Validate runs before dispatch.
type Query interface {
	Validate() error
}

// QueryHandler answers one query type.
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc adapts a function to the QueryHandler interface.
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// QueryBus dispatches queries to their registered handlers by concrete
// type.
type QueryBus struct {
	handlers map[reflect.Type]QueryHandler
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewQueryBus creates an empty query bus.
func NewQueryBus(logger *zap.Logger) *QueryBus {
	return &QueryBus{
		handlers: make(map[reflect.Type]QueryHandler),
		logger:   logger,
	}
}

// Register binds a handler to the concrete type of queryType.
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}
	b.handlers[t] = handler
	return nil
}

// Ask validates and dispatches a query, returning the handler result.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for query type %T", query)
	}

	b.logger.Debug("dispatching query", zap.String("query", reflect.TypeOf(query).Name()))
	return handler.Handle(ctx, query)
}
