package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofrs/uuid/v5"

	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/store"
)

type DynamoHeartfolioStore struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewDynamoHeartfolioStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoHeartfolioStore, error) {
	client, err := newDynamoDBClient(context.Background(), devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoHeartfolioStore{client: client, tableName: tableName, now: time.Now}, nil
}

func (dynamoStore *DynamoHeartfolioStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	userId, err := uuid.NewV4()
	if err != nil {
		return models.User{}, err
	}
	user.Id = userId.String()

	du := userToDynamo(user)
	du.Created = dynamoStore.now().Unix()
	du, created, err := putIfAbsent(dynamoStore, ctx, du.PK, du.SK, du)
	if err != nil {
		return models.User{}, err
	}

	user = userFromDynamo(du)
	if !created {
		return user, store.ErrUserExists
	}
	return user, nil
}

func (dynamoStore *DynamoHeartfolioStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	du, err := getItem[dynamoUser](dynamoStore, ctx, userPK(provider, providerId), "PROFILE", false)
	if err != nil {
		return models.User{}, err
	}

	user := userFromDynamo(du)
	return user, nil
}

func (dynamoStore *DynamoHeartfolioStore) SetUserPassword(ctx context.Context, provider string, providerId string, passwordHash string) error {
	return dynamoStore.setAttribute(ctx, userPK(provider, providerId), "PROFILE", "PasswordHash", passwordHash)
}

func (dynamoStore *DynamoHeartfolioStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	return dynamoStore.deleteItem(ctx, userPK(provider, providerId), "PROFILE")
}

// PutDocument upserts by id and stamps the server-side update time.
func (dynamoStore *DynamoHeartfolioStore) PutDocument(ctx context.Context, userId string, collection store.Collection, doc store.Document) (store.Document, error) {
	if doc.Id == "" {
		return store.Document{}, errors.New("document has no id")
	}
	doc.UpdatedAt = dynamoStore.now().UnixMilli()

	avMap, err := attributevalue.MarshalMap(documentToDynamo(userId, collection, doc))
	if err != nil {
		return store.Document{}, fmt.Errorf("marshal error: %w", err)
	}

	_, err = dynamoStore.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Item:      avMap,
	})
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to put document: %w", err)
	}
	return doc, nil
}

func (dynamoStore *DynamoHeartfolioStore) ListDocuments(ctx context.Context, userId string, collection store.Collection, filter *store.Filter) ([]store.Document, error) {
	var cond *indexFilter
	if filter != nil {
		cond = &indexFilter{field: filter.Field, value: filter.Value}
	}

	dynamoDocs, err := queryAllByPK[dynamoDocument](dynamoStore, ctx, documentPK(userId, collection), cond)
	if err != nil {
		return []store.Document{}, err
	}

	docs := make([]store.Document, 0, len(dynamoDocs))
	for _, dd := range dynamoDocs {
		docs = append(docs, documentFromDynamo(dd))
	}
	sortNewestFirst(docs)
	return docs, nil
}

// DeleteDocument succeeds whether or not the document existed.
func (dynamoStore *DynamoHeartfolioStore) DeleteDocument(ctx context.Context, userId string, collection store.Collection, id string) error {
	return dynamoStore.deleteItem(ctx, documentPK(userId, collection), id)
}

func (dynamoStore *DynamoHeartfolioStore) DeleteAllDocuments(ctx context.Context, userId string, collection store.Collection) (int, error) {
	return dynamoStore.deletePartition(ctx, documentPK(userId, collection), 50*time.Millisecond)
}

// sortNewestFirst orders by update time, falling back to id so documents
// written in the same millisecond keep a stable order. Ids are UUIDv7 so the
// later id is the later record.
func sortNewestFirst(docs []store.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].UpdatedAt != docs[j].UpdatedAt {
			return docs[i].UpdatedAt > docs[j].UpdatedAt
		}
		return docs[i].Id > docs[j].Id
	})
}

var _ store.HeartfolioStore = (*DynamoHeartfolioStore)(nil)
