package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Command is a state-changing request. Validate runs before dispatch.
type Command interface {
	Validate() error
}

// CommandHandler executes one command type and returns its result.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) (interface{}, error)
}

// CommandHandlerFunc adapts a function to the CommandHandler interface.
type CommandHandlerFunc func(ctx context.Context, cmd Command) (interface{}, error)

func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) (interface{}, error) {
	return f(ctx, cmd)
}

// CommandBus dispatches commands to their registered handlers by
// concrete type.
type CommandBus struct {
	handlers map[reflect.Type]CommandHandler
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewCommandBus creates an empty command bus.
func NewCommandBus(logger *zap.Logger) *CommandBus {
	return &CommandBus{
		handlers: make(map[reflect.Type]CommandHandler),
		logger:   logger,
	}
}

// Register binds a handler to the concrete type of cmdType.
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}
	b.handlers[t] = handler
	return nil
}

// Send validates and dispatches a command, returning the handler result.
func (b *CommandBus) Send(ctx context.Context, cmd Command) (interface{}, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("command validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for command type %T", cmd)
	}

	cmdName := reflect.TypeOf(cmd).Name()
	b.logger.Debug("dispatching command", zap.String("command", cmdName))

	result, err := handler.Handle(ctx, cmd)
	if err != nil {
		b.logger.Warn("command failed", zap.String("command", cmdName), zap.Error(err))
		return nil, err
	}
	return result, nil
}
