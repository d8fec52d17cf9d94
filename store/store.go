package store

import (
	"context"
	"errors"

	"github.com/zlnvch/heartfolio/models"
)

// Collection names a per-user document collection.
type Collection string

const (
	Memories      Collection = "memories"
	PaperBits     Collection = "paper_bits"
	Todos         Collection = "todos"
	DiaryEntries  Collection = "diary_entries"
	DiaryElements Collection = "diary_elements"
)

var AllCollections = []Collection{Memories, PaperBits, Todos, DiaryEntries, DiaryElements}

// Document is a stored record. Data is the record's JSON; Index holds the
// attributes that can be filtered on without decoding Data.
type Document struct {
	Id        string
	Data      []byte
	Index     map[string]string
	UpdatedAt int64
}

// Filter is an equality match on one indexed attribute.
type Filter struct {
	Field string
	Value string
}

type HeartfolioStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, provider string, providerId string) (models.User, error)
	SetUserPassword(ctx context.Context, provider string, providerId string, passwordHash string) error
	DeleteUser(ctx context.Context, provider string, providerId string) error

	PutDocument(ctx context.Context, userId string, collection Collection, doc Document) (Document, error)
	// ListDocuments returns documents most recently updated first. A nil
	// filter lists the whole collection.
	ListDocuments(ctx context.Context, userId string, collection Collection, filter *Filter) ([]Document, error)
	DeleteDocument(ctx context.Context, userId string, collection Collection, id string) error
	DeleteAllDocuments(ctx context.Context, userId string, collection Collection) (int, error)
}

// Custom error types for clarity
var (
	ErrItemNotFound = errors.New("item does not exist")
	ErrUserExists   = errors.New("user already exists")
)
