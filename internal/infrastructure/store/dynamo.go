package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoStore keeps documents in a single DynamoDB table with the
// collection as partition key and the document id as sort key.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	notifier  Notifier
}

// dynamoDocument is the DynamoDB item layout. The body is stored as a JSON
// string so filter matching stays identical across backends.
type dynamoDocument struct {
	Collection string `dynamodbav:"collection"`
	ID         string `dynamodbav:"id"`
	Data       string `dynamodbav:"data"`
	CreatedAt  string `dynamodbav:"created_at"`
	UpdatedAt  string `dynamodbav:"updated_at"`
}

// NewDynamoClient builds a DynamoDB client from the ambient AWS config.
func NewDynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func (ds *DynamoStore) SetNotifier(n Notifier) {
	ds.notifier = n
}

func (ds *DynamoStore) Create(ctx context.Context, collection string, data any) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	now := time.Now().Format(time.RFC3339Nano)

	av, err := attributevalue.MarshalMap(dynamoDocument{
		Collection: collection,
		ID:         id,
		Data:       string(body),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = ds.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(ds.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put document: %w", err)
	}

	ds.notify(Change{Collection: collection, DocID: id, Kind: ChangeCreated})
	return id, nil
}

func (ds *DynamoStore) Set(ctx context.Context, collection, id string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	now := time.Now().Format(time.RFC3339Nano)
	createdAt := now
	if existing, err := ds.Get(ctx, collection, id); err == nil {
		createdAt = existing.CreatedAt.Format(time.RFC3339Nano)
	}

	av, err := attributevalue.MarshalMap(dynamoDocument{
		Collection: collection,
		ID:         id,
		Data:       string(body),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = ds.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ds.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	ds.notify(Change{Collection: collection, DocID: id, Kind: ChangeUpdated})
	return nil
}

func (ds *DynamoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	result, err := ds.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ds.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return Document{}, err
	}
	if result.Item == nil {
		return Document{}, ErrNotFound
	}

	var item dynamoDocument
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return Document{}, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return item.toDocument(), nil
}

// UpdateFields reads, merges and writes back the body. Two writers racing on
// the same document resolve last write wins.
func (ds *DynamoStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := ds.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	merged, err := mergeFields(doc.Data, fields)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(dynamoDocument{
		Collection: collection,
		ID:         id,
		Data:       string(merged),
		CreatedAt:  doc.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = ds.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ds.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	ds.notify(Change{Collection: collection, DocID: id, Kind: ChangeUpdated})
	return nil
}

func (ds *DynamoStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	var out []Document
	var lastKey map[string]types.AttributeValue

	for {
		result, err := ds.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(ds.tableName),
			KeyConditionExpression: aws.String("#c = :collection"),
			ExpressionAttributeNames: map[string]string{
				"#c": "collection",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":collection": &types.AttributeValueMemberS{Value: collection},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, err
		}

		for _, raw := range result.Items {
			var item dynamoDocument
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal document: %w", err)
			}

			body := make(map[string]any)
			if err := json.Unmarshal([]byte(item.Data), &body); err != nil {
				return nil, err
			}
			if matches(body, filters) {
				out = append(out, item.toDocument())
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return out, nil
}

func (ds *DynamoStore) notify(change Change) {
	if ds.notifier != nil {
		ds.notifier.Notify(change)
	}
}

func (d dynamoDocument) toDocument() Document {
	createdAt, _ := time.Parse(time.RFC3339Nano, d.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, d.UpdatedAt)
	return Document{
		ID:         d.ID,
		Collection: d.Collection,
		Data:       json.RawMessage(d.Data),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}
