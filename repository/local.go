package repository

import (
	"context"
	"encoding/json"
	"log"

	"github.com/zlnvch/heartfolio/kv"
)

// localCollection keeps a whole collection as one JSON array under a scoped
// key. Every operation is read-modify-write of that array.
type localCollection[T any] struct {
	kind  kind[T]
	store *kv.ScopedStore
}

func newLocalCollection[T any](k kind[T], s *kv.ScopedStore) *localCollection[T] {
	return &localCollection[T]{kind: k, store: s}
}

// load decodes the array, upgrading records written by older versions. An
// unreadable blob counts as an empty collection. Upgraded arrays are written
// back once so the next read sees clean records.
func (c *localCollection[T]) load(ctx context.Context, userId string) []T {
	blob, found := c.store.Get(ctx, userId, c.kind.localKey)
	if !found {
		return []T{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		log.Printf("Discarding unreadable %s for user %q: %v", c.kind.localKey, userId, err)
		return []T{}
	}

	items := make([]T, 0, len(raw))
	upgraded := false
	for _, r := range raw {
		item, migrated, err := decodeRecord(c.kind, r)
		if err != nil {
			log.Printf("Skipping unreadable %s record for user %q: %v", c.kind.schema.Kind, userId, err)
			continue
		}
		upgraded = upgraded || migrated
		items = append(items, item)
	}

	if upgraded {
		if err := c.write(ctx, userId, items); err != nil {
			log.Printf("Failed to write back upgraded %s for user %q: %v", c.kind.localKey, userId, err)
		}
	}
	return items
}

func (c *localCollection[T]) write(ctx context.Context, userId string, items []T) error {
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		data, err := c.kind.encode(item)
		if err != nil {
			return err
		}
		raw = append(raw, data)
	}
	blob, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, userId, c.kind.localKey, string(blob))
}

// upsert replaces a record with the same key in place, or inserts it at the
// kind's end of the array.
func (c *localCollection[T]) upsert(items []T, item T) []T {
	id := c.kind.key(item)
	for i := range items {
		if c.kind.key(items[i]) == id {
			items[i] = item
			return items
		}
	}
	if c.kind.prepend {
		return append([]T{item}, items...)
	}
	return append(items, item)
}

func (c *localCollection[T]) Save(ctx context.Context, userId string, item T) error {
	if err := c.kind.validate(item); err != nil {
		return err
	}
	items := c.load(ctx, userId)
	return c.write(ctx, userId, c.upsert(items, item))
}

// SaveAll upserts every item with a single write of the array.
func (c *localCollection[T]) SaveAll(ctx context.Context, userId string, items []T) error {
	for _, item := range items {
		if err := c.kind.validate(item); err != nil {
			return err
		}
	}
	current := c.load(ctx, userId)
	for _, item := range items {
		current = c.upsert(current, item)
	}
	return c.write(ctx, userId, current)
}

func (c *localCollection[T]) GetAll(ctx context.Context, userId string) ([]T, error) {
	return c.load(ctx, userId), nil
}

func (c *localCollection[T]) GetWhere(ctx context.Context, userId string, field string, value string) ([]T, error) {
	if !c.kind.indexed(field) {
		return nil, ErrUnknownField
	}
	matched := []T{}
	for _, item := range c.load(ctx, userId) {
		if c.kind.matches(item, field, value) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (c *localCollection[T]) Delete(ctx context.Context, userId string, id string) error {
	items := c.load(ctx, userId)
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if c.kind.key(item) != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return c.write(ctx, userId, kept)
}

func (c *localCollection[T]) DeleteWhere(ctx context.Context, userId string, field string, value string) error {
	if !c.kind.indexed(field) {
		return ErrUnknownField
	}
	items := c.load(ctx, userId)
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if !c.kind.matches(item, field, value) {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return c.write(ctx, userId, kept)
}

// ReplaceWhere drops every matching record and appends items in order.
func (c *localCollection[T]) ReplaceWhere(ctx context.Context, userId string, field string, value string, items []T) error {
	if !c.kind.indexed(field) {
		return ErrUnknownField
	}
	for _, item := range items {
		if err := c.kind.validate(item); err != nil {
			return err
		}
		if !c.kind.matches(item, field, value) {
			return ErrInvalidRecord
		}
	}

	current := c.load(ctx, userId)
	kept := make([]T, 0, len(current)+len(items))
	for _, item := range current {
		if !c.kind.matches(item, field, value) {
			kept = append(kept, item)
		}
	}
	kept = append(kept, items...)
	return c.write(ctx, userId, kept)
}

func (c *localCollection[T]) DeleteAll(ctx context.Context, userId string) (int, error) {
	n := len(c.load(ctx, userId))
	if err := c.store.Delete(ctx, userId, c.kind.localKey); err != nil {
		return 0, err
	}
	return n, nil
}
