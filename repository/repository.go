package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/store"
)

// Collection is the storage contract shared by the local (key-value) and
// remote (document store) implementations. Every call names its owner.
type Collection[T any] interface {
	Save(ctx context.Context, userId string, item T) error
	SaveAll(ctx context.Context, userId string, items []T) error
	GetAll(ctx context.Context, userId string) ([]T, error)
	GetWhere(ctx context.Context, userId string, field string, value string) ([]T, error)
	Delete(ctx context.Context, userId string, id string) error
	DeleteWhere(ctx context.Context, userId string, field string, value string) error
	// ReplaceWhere makes items the complete set of records matching
	// field == value: records no longer present are removed, the rest
	// are upserted.
	ReplaceWhere(ctx context.Context, userId string, field string, value string, items []T) error
	DeleteAll(ctx context.Context, userId string) (int, error)
}

var (
	ErrMissingId     = errors.New("record has no id")
	ErrUnknownField  = errors.New("field is not indexed")
	ErrInvalidRecord = errors.New("invalid record")
)

// kind describes how one entity type is stored.
type kind[T any] struct {
	collection store.Collection
	localKey   string
	schema     models.Schema
	// New records go to the front of the local array
	prepend bool
	key     func(T) string
	index   func(T) map[string]string
	stamp   func(*T, int)
	check   func(T) error
}

func (k kind[T]) indexed(field string) bool {
	if k.index == nil {
		return false
	}
	var zero T
	_, ok := k.index(zero)[field]
	return ok
}

func (k kind[T]) matches(item T, field string, value string) bool {
	return k.index(item)[field] == value
}

func (k kind[T]) validate(item T) error {
	if k.key(item) == "" {
		return ErrMissingId
	}
	if k.check != nil {
		if err := k.check(item); err != nil {
			return err
		}
	}
	return nil
}

func (k kind[T]) encode(item T) ([]byte, error) {
	k.stamp(&item, k.schema.Version())
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", k.schema.Kind, err)
	}
	return data, nil
}

var memoryKind = kind[models.Memory]{
	collection: store.Memories,
	localKey:   "heartfolio_memories",
	schema:     models.MemorySchema,
	prepend:    true,
	key:        models.Memory.Key,
	index: func(m models.Memory) map[string]string {
		return map[string]string{"album": m.Album}
	},
	stamp: func(m *models.Memory, v int) { m.SchemaVersion = v },
}

var paperBitKind = kind[models.PaperBit]{
	collection: store.PaperBits,
	localKey:   "heartfolio_paper_bits",
	schema:     models.PaperBitSchema,
	key:        models.PaperBit.Key,
	index: func(b models.PaperBit) map[string]string {
		return map[string]string{"album": b.Album}
	},
	stamp: func(b *models.PaperBit, v int) { b.SchemaVersion = v },
}

var todoKind = kind[models.TodoItem]{
	collection: store.Todos,
	localKey:   "heartfolio_todos",
	schema:     models.TodoSchema,
	prepend:    true,
	key:        models.TodoItem.Key,
	stamp:      func(t *models.TodoItem, v int) { t.SchemaVersion = v },
}

var diaryEntryKind = kind[models.DiaryEntry]{
	collection: store.DiaryEntries,
	localKey:   "heartfolio_diary_entries",
	schema:     models.DiaryEntrySchema,
	prepend:    true,
	key:        models.DiaryEntry.Key,
	stamp:      func(e *models.DiaryEntry, v int) { e.SchemaVersion = v },
}

var diaryElementKind = kind[models.DiaryElement]{
	collection: store.DiaryElements,
	localKey:   "heartfolio_diary_elements",
	schema:     models.DiaryElementSchema,
	key:        models.DiaryElement.Key,
	index: func(e models.DiaryElement) map[string]string {
		return map[string]string{"entryId": e.EntryId}
	},
	stamp: func(e *models.DiaryElement, v int) { e.SchemaVersion = v },
	check: func(e models.DiaryElement) error {
		if e.EntryId == "" {
			return fmt.Errorf("%w: element %s has no entry", ErrInvalidRecord, e.Id)
		}
		if !e.Type.Valid() {
			return fmt.Errorf("%w: element %s has type %q", ErrInvalidRecord, e.Id, e.Type)
		}
		if e.Type == models.ElementPath && len(e.Points) < 2 {
			return fmt.Errorf("%w: stroke %s has %d points", ErrInvalidRecord, e.Id, len(e.Points))
		}
		return nil
	},
}
