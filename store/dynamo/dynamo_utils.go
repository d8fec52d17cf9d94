package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/zlnvch/heartfolio/store"
)

// DynamoDB accepts at most 25 requests per BatchWriteItem call.
const maxBatchWrite = 25

func newDynamoDBClient(ctx context.Context, devMode bool, dynamodbEndpoint string) (*dynamodb.Client, error) {
	if !devMode {
		// Fargate task role and the regional endpoint
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewFromConfig(cfg), nil
	}

	// DynamoDB Local accepts any credentials
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
		),
	)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(dynamodbEndpoint)
	}), nil
}

func getTables(client *dynamodb.Client, ctx context.Context) ([]string, error) {
	output, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return nil, err
	}
	return output.TableNames, nil
}

func itemKey(pk string, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func isConditionFailure(err error) bool {
	var cce *types.ConditionalCheckFailedException
	return errors.As(err, &cce)
}

// getItem loads one record. A missing record is store.ErrItemNotFound.
func getItem[T any](dynamoStore *DynamoHeartfolioStore, ctx context.Context, pk string, sk string, consistentRead bool) (T, error) {
	var item T

	resp, err := dynamoStore.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(dynamoStore.tableName),
		Key:            itemKey(pk, sk),
		ConsistentRead: aws.Bool(consistentRead),
	})
	if err != nil {
		return item, fmt.Errorf("GetItem failed: %w", err)
	}
	if resp.Item == nil {
		return item, store.ErrItemNotFound
	}

	if err := attributevalue.UnmarshalMap(resp.Item, &item); err != nil {
		return item, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item, nil
}

// putIfAbsent writes item unless its key is taken, in which case the
// stored record is returned with created == false.
func putIfAbsent[T any](dynamoStore *DynamoHeartfolioStore, ctx context.Context, pk string, sk string, item T) (T, bool, error) {
	avMap, err := attributevalue.MarshalMap(item)
	if err != nil {
		return item, false, fmt.Errorf("marshal error: %w", err)
	}

	_, err = dynamoStore.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(dynamoStore.tableName),
		Item:                avMap,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err == nil {
		return item, true, nil
	}
	if !isConditionFailure(err) {
		return item, false, fmt.Errorf("failed to put item: %w", err)
	}

	existing, err := getItem[T](dynamoStore, ctx, pk, sk, true)
	if err != nil {
		return existing, false, fmt.Errorf("failed to get existing item: %w", err)
	}
	return existing, false, nil
}

// setAttribute overwrites one string attribute of an existing record.
func (dynamoStore *DynamoHeartfolioStore) setAttribute(ctx context.Context, pk string, sk string, name string, value string) error {
	_, err := dynamoStore.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(dynamoStore.tableName),
		Key:              itemKey(pk, sk),
		UpdateExpression: aws.String("SET #a = :v"),
		ExpressionAttributeNames: map[string]string{
			"#a": name,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return store.ErrItemNotFound
		}
		return fmt.Errorf("update %s failed: %w", name, err)
	}
	return nil
}

// deleteItem removes one record; deleting a missing record is not an error.
func (dynamoStore *DynamoHeartfolioStore) deleteItem(ctx context.Context, pk string, sk string) error {
	_, err := dynamoStore.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// indexFilter matches one attribute of a document's Index map.
type indexFilter struct {
	field string
	value string
}

// queryAllByPK returns all items of type T with the given PK, optionally
// narrowed by an index filter applied after the key condition.
func queryAllByPK[T any](dynamoStore *DynamoHeartfolioStore, ctx context.Context, pk string, filter *indexFilter) ([]T, error) {
	results := []T{}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(dynamoStore.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	}

	if filter != nil {
		input.FilterExpression = aws.String("#idx.#f = :v")
		input.ExpressionAttributeNames = map[string]string{
			"#idx": "Index",
			"#f":   filter.field,
		}
		input.ExpressionAttributeValues[":v"] = &types.AttributeValueMemberS{Value: filter.value}
	}

	paginator := dynamodb.NewQueryPaginator(dynamoStore.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}

		var pageItems []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal page items: %w", err)
		}
		results = append(results, pageItems...)
	}

	return results, nil
}

// writeBatch sends up to 25 write requests, retrying unprocessed ones with
// exponential backoff until ctx is done.
func (dynamoStore *DynamoHeartfolioStore) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	backoff := 50 * time.Millisecond

	for len(requests) > 0 {
		resp, err := dynamoStore.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				dynamoStore.tableName: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("BatchWriteItem failed: %w", err)
		}

		requests = resp.UnprocessedItems[dynamoStore.tableName]
		if len(requests) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%d writes unprocessed: %w", len(requests), ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
	return nil
}

// deleteRequests turns query results into delete requests, skipping items
// without a full key.
func deleteRequests(items []map[string]types.AttributeValue) []types.WriteRequest {
	reqs := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		pk, okPK := item["PK"]
		sk, okSK := item["SK"]
		if !okPK || !okSK {
			continue
		}
		reqs = append(reqs, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{"PK": pk, "SK": sk},
			},
		})
	}
	return reqs
}

// chunk splits requests into slices of at most size elements.
func chunk(reqs []types.WriteRequest, size int) [][]types.WriteRequest {
	var chunks [][]types.WriteRequest
	for len(reqs) > size {
		chunks = append(chunks, reqs[:size])
		reqs = reqs[size:]
	}
	if len(reqs) > 0 {
		chunks = append(chunks, reqs)
	}
	return chunks
}

// deletePartition deletes every document under pk and returns how many were
// removed. Batches are spaced at least throttle apart to stay under the
// table's write capacity during an account purge.
func (dynamoStore *DynamoHeartfolioStore) deletePartition(ctx context.Context, pk string, throttle time.Duration) (int, error) {
	const queryPageSize int32 = 200
	deleted := 0

	// Deleting while paging would shift the pages, so always re-query the head
	for {
		resp, err := dynamoStore.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(dynamoStore.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ProjectionExpression: aws.String("PK, SK"),
			Limit:                aws.Int32(queryPageSize),
			ConsistentRead:       aws.Bool(true),
		})
		if err != nil {
			return deleted, fmt.Errorf("query failed: %w", err)
		}

		reqs := deleteRequests(resp.Items)
		if len(reqs) == 0 {
			return deleted, nil
		}

		for _, batch := range chunk(reqs, maxBatchWrite) {
			start := time.Now()
			if err := dynamoStore.writeBatch(ctx, batch); err != nil {
				return deleted, fmt.Errorf("batch delete failed: %w", err)
			}
			deleted += len(batch)

			if wait := throttle - time.Since(start); wait > 0 {
				select {
				case <-ctx.Done():
					return deleted, ctx.Err()
				case <-time.After(wait):
				}
			}
		}
	}
}
