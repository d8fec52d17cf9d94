package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	args := m.Called(ctx, provider, providerId)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) SetUserPassword(ctx context.Context, provider string, providerId string, passwordHash string) error {
	args := m.Called(ctx, provider, providerId, passwordHash)
	return args.Error(0)
}

func (m *MockStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	args := m.Called(ctx, provider, providerId)
	return args.Error(0)
}

func (m *MockStore) PutDocument(ctx context.Context, userId string, collection store.Collection, doc store.Document) (store.Document, error) {
	args := m.Called(ctx, userId, collection, doc)
	return args.Get(0).(store.Document), args.Error(1)
}

func (m *MockStore) ListDocuments(ctx context.Context, userId string, collection store.Collection, filter *store.Filter) ([]store.Document, error) {
	args := m.Called(ctx, userId, collection, filter)
	return args.Get(0).([]store.Document), args.Error(1)
}

func (m *MockStore) DeleteDocument(ctx context.Context, userId string, collection store.Collection, id string) error {
	args := m.Called(ctx, userId, collection, id)
	return args.Error(0)
}

func (m *MockStore) DeleteAllDocuments(ctx context.Context, userId string, collection store.Collection) (int, error) {
	args := m.Called(ctx, userId, collection)
	return args.Int(0), args.Error(1)
}

// MemoryStore keeps documents in maps. UpdatedAt is a counter so listing
// order is deterministic within a test.
type MemoryStore struct {
	mu    sync.Mutex
	clock int64
	docs  map[string]map[string]store.Document
	users map[string]models.User
	// Puts counts PutDocument calls per collection.
	Puts map[store.Collection]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]store.Document),
		users: make(map[string]models.User),
		Puts:  make(map[store.Collection]int),
	}
}

func docPath(userId string, collection store.Collection) string {
	return "users/" + userId + "/" + string(collection)
}

func (m *MemoryStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := user.Provider + "#" + user.ProviderId
	if existing, ok := m.users[key]; ok {
		return existing, store.ErrUserExists
	}
	id, err := uuid.NewV4()
	if err != nil {
		return models.User{}, err
	}
	user.Id = id.String()
	m.users[key] = user
	return user, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[provider+"#"+providerId]
	if !ok {
		return models.User{}, store.ErrItemNotFound
	}
	return user, nil
}

func (m *MemoryStore) SetUserPassword(ctx context.Context, provider string, providerId string, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := provider + "#" + providerId
	user, ok := m.users[key]
	if !ok {
		return store.ErrItemNotFound
	}
	user.PasswordHash = passwordHash
	m.users[key] = user
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, provider+"#"+providerId)
	return nil
}

func (m *MemoryStore) PutDocument(ctx context.Context, userId string, collection store.Collection, doc store.Document) (store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := docPath(userId, collection)
	if m.docs[path] == nil {
		m.docs[path] = make(map[string]store.Document)
	}
	m.clock++
	doc.UpdatedAt = m.clock
	doc.Data = append([]byte(nil), doc.Data...)
	m.docs[path][doc.Id] = doc
	m.Puts[collection]++
	return doc, nil
}

func (m *MemoryStore) ListDocuments(ctx context.Context, userId string, collection store.Collection, filter *store.Filter) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := []store.Document{}
	for _, doc := range m.docs[docPath(userId, collection)] {
		if filter != nil && doc.Index[filter.Field] != filter.Value {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt > docs[j].UpdatedAt })
	return docs, nil
}

func (m *MemoryStore) DeleteDocument(ctx context.Context, userId string, collection store.Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[docPath(userId, collection)], id)
	return nil
}

func (m *MemoryStore) DeleteAllDocuments(ctx context.Context, userId string, collection store.Collection) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := docPath(userId, collection)
	n := len(m.docs[path])
	delete(m.docs, path)
	return n, nil
}
