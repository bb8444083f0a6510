package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cnlgraph/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// CompileLock serializes compile submissions per graph using DynamoDB
// conditional writes. The item TTL lets DynamoDB reap leases whose
// holder died without releasing.
type CompileLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewCompileLock creates a DynamoDB-backed compile lock.
func NewCompileLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *CompileLock {
	return &CompileLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func lockPK(graphID string) string { return fmt.Sprintf("COMPILELOCK#%s", graphID) }

// Acquire takes the per-graph lock, failing fast when another
// submission holds a live lease.
func (l *CompileLock) Acquire(ctx context.Context, graphID, owner string, ttl time.Duration) (ports.Lease, error) {
	lockID := fmt.Sprintf("%s_%d", owner, time.Now().UnixNano())
	now := time.Now()
	expiresAt := now.Add(ttl)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: lockPK(graphID)},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Owner":      &types.AttributeValueMemberS{Value: owner},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := l.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			l.logger.Debug("compile lock already held",
				zap.String("graphID", graphID),
				zap.String("owner", owner),
			)
			return nil, fmt.Errorf("compile lock already held for graph %s", graphID)
		}
		return nil, fmt.Errorf("failed to acquire compile lock: %w", err)
	}

	l.logger.Debug("compile lock acquired",
		zap.String("graphID", graphID),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl),
	)

	return &lease{lock: l, graphID: graphID, lockID: lockID, owner: owner}, nil
}

// lease is one held per-graph lock.
type lease struct {
	lock    *CompileLock
	graphID string
	lockID  string
	owner   string
}

// Release deletes the lock item, but only if this lease still owns it;
// an expired lease taken over by another submission is left alone.
func (le *lease) Release(ctx context.Context) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(le.lock.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lockPK(le.graphID)},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: le.lockID},
		},
	}

	if _, err := le.lock.client.DeleteItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			le.lock.logger.Warn("compile lock already released or taken over",
				zap.String("graphID", le.graphID),
				zap.String("lockID", le.lockID),
			)
			return nil
		}
		return fmt.Errorf("failed to release compile lock: %w", err)
	}
	return nil
}
