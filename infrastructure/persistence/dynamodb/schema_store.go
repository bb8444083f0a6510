package dynamodb

import (
	"context"
	"fmt"
	"strings"

	"cnlgraph/domain/schema"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Schema definitions share the single table under one partition:
//
//	PK=SCHEMA  SK=NODETYPE#<name>
//	PK=SCHEMA  SK=RELTYPE#<name>
//	PK=SCHEMA  SK=ATTRTYPE#<name>
//	PK=SCHEMA  SK=FNTYPE#<name>
//
// Schema CRUD belongs to an external manager; this store only reads.

// SchemaStore implements the schema store port on DynamoDB.
type SchemaStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSchemaStore creates a DynamoDB-backed schema store.
func NewSchemaStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *SchemaStore {
	return &SchemaStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type nodeTypeItem struct {
	PK       string          `dynamodbav:"PK"`
	SK       string          `dynamodbav:"SK"`
	NodeType schema.NodeType `dynamodbav:"NodeType"`
}

type relationTypeItem struct {
	PK           string              `dynamodbav:"PK"`
	SK           string              `dynamodbav:"SK"`
	RelationType schema.RelationType `dynamodbav:"RelationType"`
}

type attributeTypeItem struct {
	PK            string               `dynamodbav:"PK"`
	SK            string               `dynamodbav:"SK"`
	AttributeType schema.AttributeType `dynamodbav:"AttributeType"`
}

type functionTypeItem struct {
	PK           string              `dynamodbav:"PK"`
	SK           string              `dynamodbav:"SK"`
	FunctionType schema.FunctionType `dynamodbav:"FunctionType"`
}

// LoadSnapshot reads all schema definition items and builds an
// immutable snapshot. A cyclic type hierarchy surfaces here as a
// *schema.CycleError.
func (s *SchemaStore) LoadSnapshot(ctx context.Context) (*schema.Snapshot, error) {
	var (
		nodeTypes      []schema.NodeType
		relationTypes  []schema.RelationType
		attributeTypes []schema.AttributeType
		functionTypes  []schema.FunctionType
	)

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "SCHEMA"},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query schema: %w", err)
		}
		for _, raw := range page.Items {
			sk, ok := raw["SK"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			switch {
			case strings.HasPrefix(sk.Value, "NODETYPE#"):
				var item nodeTypeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					s.logger.Warn("skipping unreadable node type", zap.Error(err))
					continue
				}
				nodeTypes = append(nodeTypes, item.NodeType)
			case strings.HasPrefix(sk.Value, "RELTYPE#"):
				var item relationTypeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					s.logger.Warn("skipping unreadable relation type", zap.Error(err))
					continue
				}
				relationTypes = append(relationTypes, item.RelationType)
			case strings.HasPrefix(sk.Value, "ATTRTYPE#"):
				var item attributeTypeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					s.logger.Warn("skipping unreadable attribute type", zap.Error(err))
					continue
				}
				attributeTypes = append(attributeTypes, item.AttributeType)
			case strings.HasPrefix(sk.Value, "FNTYPE#"):
				var item functionTypeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					s.logger.Warn("skipping unreadable function type", zap.Error(err))
					continue
				}
				functionTypes = append(functionTypes, item.FunctionType)
			}
		}
	}

	return schema.NewSnapshot(nodeTypes, relationTypes, attributeTypes, functionTypes)
}
