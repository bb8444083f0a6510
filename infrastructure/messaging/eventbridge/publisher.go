// Package eventbridge publishes compile lifecycle events to Amazon
// EventBridge.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"cnlgraph/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

const (
	eventSource       = "cnlgraph"
	compiledEventType = "graph.compiled"
)

// Publisher implements the event bus port on EventBridge.
type Publisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge publisher for the named bus.
func NewPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// PublishCompiled emits one graph.compiled event.
func (p *Publisher) PublishCompiled(ctx context.Context, event ports.CompiledEvent) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal compile event: %w", err)
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(compiledEventType),
				Detail:       aws.String(string(detail)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish compile event: %w", err)
	}
	if out.FailedEntryCount > 0 {
		for _, entry := range out.Entries {
			if entry.ErrorCode != nil {
				return fmt.Errorf("event rejected: %s", aws.ToString(entry.ErrorMessage))
			}
		}
	}

	p.logger.Debug("compile event published",
		zap.String("graphID", event.GraphID),
		zap.String("detailType", compiledEventType),
	)
	return nil
}
