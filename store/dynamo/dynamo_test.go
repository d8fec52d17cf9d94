package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/store"
)

func TestSortNewestFirst(t *testing.T) {
	docs := []store.Document{
		{Id: "a", UpdatedAt: 100},
		{Id: "c", UpdatedAt: 300},
		{Id: "b", UpdatedAt: 300},
		{Id: "d", UpdatedAt: 200},
	}

	sortNewestFirst(docs)

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.Id)
	}
	assert.Equal(t, []string{"c", "b", "d", "a"}, ids)
}

func TestDocumentMapping(t *testing.T) {
	doc := store.Document{
		Id:    "text_0192",
		Data:  []byte(`{"id":"text_0192"}`),
		Index: map[string]string{"entryId": "e1"},
	}

	dd := documentToDynamo("u1", store.DiaryElements, doc)
	assert.Equal(t, "DOC#u1#diary_elements", dd.PK)
	assert.Equal(t, "text_0192", dd.SK)
	assert.Equal(t, "u1", dd.UserId)
	assert.Equal(t, "diary_elements", dd.Collection)

	back := documentFromDynamo(dd)
	assert.Equal(t, doc, back)
}

func TestUserMapping(t *testing.T) {
	user := models.User{
		Id:           "id",
		Email:        "a@b.c",
		Provider:     "email",
		ProviderId:   "a@b.c",
		PasswordHash: "hash",
		Created:      42,
	}

	du := userToDynamo(user)
	assert.Equal(t, "USER#email#a@b.c", du.PK)
	assert.Equal(t, "PROFILE", du.SK)
	assert.Equal(t, user, userFromDynamo(du))
}

func TestChunk(t *testing.T) {
	reqs := make([]types.WriteRequest, 60)

	chunks := chunk(reqs, maxBatchWrite)
	sizes := make([]int, 0, len(chunks))
	for _, c := range chunks {
		sizes = append(sizes, len(c))
	}
	assert.Equal(t, []int{25, 25, 10}, sizes)

	assert.Len(t, chunk(reqs[:25], maxBatchWrite), 1)
	assert.Empty(t, chunk(nil, maxBatchWrite))
}

func TestDeleteRequests_SkipsPartialKeys(t *testing.T) {
	items := []map[string]types.AttributeValue{
		itemKey("DOC#u1#todos", "t1"),
		{"PK": &types.AttributeValueMemberS{Value: "DOC#u1#todos"}},
		itemKey("DOC#u1#todos", "t2"),
	}

	reqs := deleteRequests(items)
	require.Len(t, reqs, 2)
	assert.Equal(t, itemKey("DOC#u1#todos", "t1"), reqs[0].DeleteRequest.Key)
	assert.Equal(t, itemKey("DOC#u1#todos", "t2"), reqs[1].DeleteRequest.Key)
	assert.Nil(t, reqs[0].PutRequest)
}
