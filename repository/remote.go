package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/store"
)

// remoteCollection stores one document per record. Batch operations are
// sequential single-document calls; a failure part way leaves the earlier
// writes in place.
type remoteCollection[T any] struct {
	kind  kind[T]
	store store.HeartfolioStore
}

func newRemoteCollection[T any](k kind[T], s store.HeartfolioStore) *remoteCollection[T] {
	return &remoteCollection[T]{kind: k, store: s}
}

func decodeRecord[T any](k kind[T], data []byte) (T, bool, error) {
	return models.Decode[T](k.schema, data)
}

func (c *remoteCollection[T]) toDocument(item T) (store.Document, error) {
	data, err := c.kind.encode(item)
	if err != nil {
		return store.Document{}, err
	}
	doc := store.Document{Id: c.kind.key(item), Data: data}
	if c.kind.index != nil {
		doc.Index = c.kind.index(item)
	}
	return doc, nil
}

func (c *remoteCollection[T]) put(ctx context.Context, userId string, item T) error {
	doc, err := c.toDocument(item)
	if err != nil {
		return err
	}
	if _, err := c.store.PutDocument(ctx, userId, c.kind.collection, doc); err != nil {
		return fmt.Errorf("save %s %s: %w", c.kind.schema.Kind, doc.Id, err)
	}
	return nil
}

func (c *remoteCollection[T]) list(ctx context.Context, userId string, filter *store.Filter) ([]T, error) {
	docs, err := c.store.ListDocuments(ctx, userId, c.kind.collection, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.kind.collection, err)
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, migrated, err := decodeRecord(c.kind, doc.Data)
		if err != nil {
			log.Printf("Skipping unreadable %s document %s for user %q: %v", c.kind.schema.Kind, doc.Id, userId, err)
			continue
		}
		if migrated {
			if err := c.put(ctx, userId, item); err != nil {
				log.Printf("Failed to write back upgraded %s %s: %v", c.kind.schema.Kind, doc.Id, err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *remoteCollection[T]) Save(ctx context.Context, userId string, item T) error {
	if err := c.kind.validate(item); err != nil {
		return err
	}
	return c.put(ctx, userId, item)
}

func (c *remoteCollection[T]) SaveAll(ctx context.Context, userId string, items []T) error {
	for _, item := range items {
		if err := c.kind.validate(item); err != nil {
			return err
		}
	}
	for _, item := range items {
		if err := c.put(ctx, userId, item); err != nil {
			return err
		}
	}
	return nil
}

func (c *remoteCollection[T]) GetAll(ctx context.Context, userId string) ([]T, error) {
	return c.list(ctx, userId, nil)
}

func (c *remoteCollection[T]) GetWhere(ctx context.Context, userId string, field string, value string) ([]T, error) {
	if !c.kind.indexed(field) {
		return nil, ErrUnknownField
	}
	return c.list(ctx, userId, &store.Filter{Field: field, Value: value})
}

func (c *remoteCollection[T]) Delete(ctx context.Context, userId string, id string) error {
	if err := c.store.DeleteDocument(ctx, userId, c.kind.collection, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", c.kind.schema.Kind, id, err)
	}
	return nil
}

func (c *remoteCollection[T]) DeleteWhere(ctx context.Context, userId string, field string, value string) error {
	if !c.kind.indexed(field) {
		return ErrUnknownField
	}
	docs, err := c.store.ListDocuments(ctx, userId, c.kind.collection, &store.Filter{Field: field, Value: value})
	if err != nil {
		return fmt.Errorf("list %s: %w", c.kind.collection, err)
	}
	for _, doc := range docs {
		if err := c.Delete(ctx, userId, doc.Id); err != nil {
			return err
		}
	}
	return nil
}

func (c *remoteCollection[T]) ReplaceWhere(ctx context.Context, userId string, field string, value string, items []T) error {
	if !c.kind.indexed(field) {
		return ErrUnknownField
	}
	keep := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := c.kind.validate(item); err != nil {
			return err
		}
		if !c.kind.matches(item, field, value) {
			return ErrInvalidRecord
		}
		keep[c.kind.key(item)] = struct{}{}
	}

	docs, err := c.store.ListDocuments(ctx, userId, c.kind.collection, &store.Filter{Field: field, Value: value})
	if err != nil {
		return fmt.Errorf("list %s: %w", c.kind.collection, err)
	}
	for _, doc := range docs {
		if _, ok := keep[doc.Id]; ok {
			continue
		}
		if err := c.Delete(ctx, userId, doc.Id); err != nil {
			return err
		}
	}

	for _, item := range items {
		if err := c.put(ctx, userId, item); err != nil {
			return err
		}
	}
	return nil
}

func (c *remoteCollection[T]) DeleteAll(ctx context.Context, userId string) (int, error) {
	return c.store.DeleteAllDocuments(ctx, userId, c.kind.collection)
}
