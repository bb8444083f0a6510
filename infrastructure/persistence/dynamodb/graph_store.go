package dynamodb

import (
	"context"
	"fmt"
	"time"

	"cnlgraph/domain/graph"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Single-table layout for graph snapshots:
//
//	PK=GRAPH#<id>  SK=METADATA       graph description
//	PK=GRAPH#<id>  SK=NODE#<nodeID>  one node with its morphs
//	PK=GRAPH#<id>  SK=REL#<relID>    one relation
//	PK=GRAPH#<id>  SK=ATTR#<attrID>  one attribute
//
// A change list maps one-to-one onto item writes: deletes first, then
// puts, so a replayed batch never passes through a duplicate state.

const maxBatchWriteItems = 25

// GraphStore implements the graph store port on DynamoDB.
type GraphStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewGraphStore creates a DynamoDB-backed graph store.
func NewGraphStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *GraphStore {
	return &GraphStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type metadataItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	GraphID     string `dynamodbav:"GraphID"`
	Description string `dynamodbav:"Description,omitempty"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
}

type nodeItem struct {
	PK         string     `dynamodbav:"PK"`
	SK         string     `dynamodbav:"SK"`
	EntityType string     `dynamodbav:"EntityType"`
	Node       graph.Node `dynamodbav:"Node"`
}

type relationItem struct {
	PK         string         `dynamodbav:"PK"`
	SK         string         `dynamodbav:"SK"`
	EntityType string         `dynamodbav:"EntityType"`
	Relation   graph.Relation `dynamodbav:"Relation"`
}

type attributeItem struct {
	PK         string          `dynamodbav:"PK"`
	SK         string          `dynamodbav:"SK"`
	EntityType string          `dynamodbav:"EntityType"`
	Attribute  graph.Attribute `dynamodbav:"Attribute"`
}

func graphPK(graphID string) string { return fmt.Sprintf("GRAPH#%s", graphID) }

// LoadSnapshot loads the full stored graph, or an empty graph when the
// id is unknown.
func (s *GraphStore) LoadSnapshot(ctx context.Context, graphID string) (*graph.Graph, error) {
	g := graph.NewGraph(graphID)

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: graphPK(graphID)},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query graph %s: %w", graphID, err)
		}
		for _, raw := range page.Items {
			if err := s.foldItem(g, raw); err != nil {
				s.logger.Warn("skipping unreadable graph item",
					zap.String("graphID", graphID),
					zap.Error(err),
				)
			}
		}
	}

	return g, nil
}

func (s *GraphStore) foldItem(g *graph.Graph, raw map[string]types.AttributeValue) error {
	entityType, ok := raw["EntityType"].(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("item missing EntityType")
	}
	switch entityType.Value {
	case "METADATA":
		var item metadataItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		g.Description = item.Description
	case "NODE":
		var item nodeItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return fmt.Errorf("failed to unmarshal node: %w", err)
		}
		node := item.Node
		g.Nodes = append(g.Nodes, &node)
	case "RELATION":
		var item relationItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return fmt.Errorf("failed to unmarshal relation: %w", err)
		}
		rel := item.Relation
		g.Relations = append(g.Relations, &rel)
	case "ATTRIBUTE":
		var item attributeItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return fmt.Errorf("failed to unmarshal attribute: %w", err)
		}
		attr := item.Attribute
		g.Attributes = append(g.Attributes, &attr)
	default:
		return fmt.Errorf("unknown entity type %q", entityType.Value)
	}
	return nil
}

// ApplyChangeList writes the ordered change list: delete requests in
// the list's order first, then puts. The metadata item is refreshed on
// every apply that carries changes.
func (s *GraphStore) ApplyChangeList(ctx context.Context, graphID string, changes graph.ChangeList) error {
	if changes.Empty() {
		return nil
	}

	var requests []types.WriteRequest
	for _, c := range changes {
		req, err := s.writeRequest(graphID, c)
		if err != nil {
			return err
		}
		requests = append(requests, req)
	}

	metaReq, err := s.metadataRequest(graphID)
	if err != nil {
		return err
	}
	requests = append(requests, metaReq)

	for start := 0; start < len(requests); start += maxBatchWriteItems {
		end := start + maxBatchWriteItems
		if end > len(requests) {
			end = len(requests)
		}
		if err := s.writeBatch(ctx, requests[start:end]); err != nil {
			return fmt.Errorf("failed to apply change batch for graph %s: %w", graphID, err)
		}
	}

	creates, updates, deletes := changes.Counts()
	s.logger.Info("change list applied",
		zap.String("graphID", graphID),
		zap.Int("creates", creates),
		zap.Int("updates", updates),
		zap.Int("deletes", deletes),
	)
	return nil
}

func (s *GraphStore) writeRequest(graphID string, c graph.Change) (types.WriteRequest, error) {
	sk, err := changeSK(c)
	if err != nil {
		return types.WriteRequest{}, err
	}

	if c.Op == graph.OpDelete {
		return types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: graphPK(graphID)},
					"SK": &types.AttributeValueMemberS{Value: sk},
				},
			},
		}, nil
	}

	var item interface{}
	switch c.Kind {
	case graph.KindNode:
		item = nodeItem{PK: graphPK(graphID), SK: sk, EntityType: "NODE", Node: *c.Node}
	case graph.KindRelation:
		item = relationItem{PK: graphPK(graphID), SK: sk, EntityType: "RELATION", Relation: *c.Relation}
	case graph.KindAttribute:
		item = attributeItem{PK: graphPK(graphID), SK: sk, EntityType: "ATTRIBUTE", Attribute: *c.Attribute}
	default:
		return types.WriteRequest{}, fmt.Errorf("unknown change kind %q", c.Kind)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.WriteRequest{}, fmt.Errorf("failed to marshal %s change: %w", c.Kind, err)
	}
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: av}}, nil
}

func changeSK(c graph.Change) (string, error) {
	switch c.Kind {
	case graph.KindNode:
		return fmt.Sprintf("NODE#%s", c.Node.ID), nil
	case graph.KindRelation:
		return fmt.Sprintf("REL#%s", c.Relation.ID), nil
	case graph.KindAttribute:
		return fmt.Sprintf("ATTR#%s", c.Attribute.ID), nil
	default:
		return "", fmt.Errorf("unknown change kind %q", c.Kind)
	}
}

func (s *GraphStore) metadataRequest(graphID string) (types.WriteRequest, error) {
	av, err := attributevalue.MarshalMap(metadataItem{
		PK:         graphPK(graphID),
		SK:         "METADATA",
		EntityType: "METADATA",
		GraphID:    graphID,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return types.WriteRequest{}, fmt.Errorf("failed to marshal graph metadata: %w", err)
	}
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: av}}, nil
}

func (s *GraphStore) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	pending := requests
	for attempt := 0; len(pending) > 0; attempt++ {
		if attempt > 3 {
			return fmt.Errorf("unprocessed items after %d attempts", attempt)
		}
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: pending},
		})
		if err != nil {
			return err
		}
		pending = out.UnprocessedItems[s.tableName]
		if len(pending) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
			}
		}
	}
	return nil
}

// ListGraphIDs scans for graph metadata items.
func (s *GraphStore) ListGraphIDs(ctx context.Context) ([]string, error) {
	var ids []string

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.tableName),
		FilterExpression:     aws.String("EntityType = :t"),
		ProjectionExpression: aws.String("GraphID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan graphs: %w", err)
		}
		for _, raw := range page.Items {
			if id, ok := raw["GraphID"].(*types.AttributeValueMemberS); ok && id.Value != "" {
				ids = append(ids, id.Value)
			}
		}
	}
	return ids, nil
}

// LoadNodeNames scans node items across all graphs and returns the set
// of base names, backing the cross-graph target index.
func (s *GraphStore) LoadNodeNames(ctx context.Context) (map[string]bool, error) {
	names := make(map[string]bool)

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.tableName),
		FilterExpression:     aws.String("EntityType = :t"),
		ProjectionExpression: aws.String("#n.BaseName"),
		ExpressionAttributeNames: map[string]string{
			"#n": "Node",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: "NODE"},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nodes: %w", err)
		}
		for _, raw := range page.Items {
			node, ok := raw["Node"].(*types.AttributeValueMemberM)
			if !ok {
				continue
			}
			if base, ok := node.Value["BaseName"].(*types.AttributeValueMemberS); ok && base.Value != "" {
				names[base.Value] = true
			}
		}
	}
	return names, nil
}
