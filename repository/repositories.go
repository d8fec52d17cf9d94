package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/zlnvch/heartfolio/kv"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/store"
)

var ErrInvalidAlbum = errors.New("invalid album name")

// Repositories groups the typed collections of one deployment. Local and
// remote deployments expose the same operations.
type Repositories struct {
	Memories      Collection[models.Memory]
	PaperBits     Collection[models.PaperBit]
	Todos         Collection[models.TodoItem]
	DiaryEntries  Collection[models.DiaryEntry]
	DiaryElements Collection[models.DiaryElement]
}

func NewLocal(s *kv.ScopedStore) *Repositories {
	return &Repositories{
		Memories:      newLocalCollection(memoryKind, s),
		PaperBits:     newLocalCollection(paperBitKind, s),
		Todos:         newLocalCollection(todoKind, s),
		DiaryEntries:  newLocalCollection(diaryEntryKind, s),
		DiaryElements: newLocalCollection(diaryElementKind, s),
	}
}

func NewRemote(s store.HeartfolioStore) *Repositories {
	return &Repositories{
		Memories:      newRemoteCollection(memoryKind, s),
		PaperBits:     newRemoteCollection(paperBitKind, s),
		Todos:         newRemoteCollection(todoKind, s),
		DiaryEntries:  newRemoteCollection(diaryEntryKind, s),
		DiaryElements: newRemoteCollection(diaryElementKind, s),
	}
}

func (r *Repositories) ElementsForEntry(ctx context.Context, userId string, entryId string) ([]models.DiaryElement, error) {
	return r.DiaryElements.GetWhere(ctx, userId, "entryId", entryId)
}

// ReplaceEntryElements makes elements the full element set of the entry.
func (r *Repositories) ReplaceEntryElements(ctx context.Context, userId string, entryId string, elements []models.DiaryElement) error {
	return r.DiaryElements.ReplaceWhere(ctx, userId, "entryId", entryId, elements)
}

// DeleteDiaryEntry removes the entry and then every element on it. There
// is no rollback: if the element delete fails the entry is already gone and
// the error is returned to the caller.
func (r *Repositories) DeleteDiaryEntry(ctx context.Context, userId string, entryId string) error {
	if err := r.DiaryEntries.Delete(ctx, userId, entryId); err != nil {
		return err
	}
	if err := r.DiaryElements.DeleteWhere(ctx, userId, "entryId", entryId); err != nil {
		log.Printf("Entry %s deleted but its elements were not: %v", entryId, err)
		return fmt.Errorf("delete elements of entry %s: %w", entryId, err)
	}
	return nil
}

// RenameAlbum moves every memory and paper bit from oldName to newName.
// A blank or unchanged new name is a no-op.
func (r *Repositories) RenameAlbum(ctx context.Context, userId string, oldName string, newName string) error {
	newName = strings.TrimSpace(newName)
	if oldName == "" {
		return ErrInvalidAlbum
	}
	if newName == "" || newName == oldName {
		return nil
	}

	memories, err := r.Memories.GetAll(ctx, userId)
	if err != nil {
		return err
	}
	renamed := []models.Memory{}
	for _, m := range memories {
		if m.Album == oldName {
			m.Album = newName
			renamed = append(renamed, m)
		}
	}
	if err := r.Memories.SaveAll(ctx, userId, renamed); err != nil {
		return fmt.Errorf("rename album in memories: %w", err)
	}

	bits, err := r.PaperBits.GetAll(ctx, userId)
	if err != nil {
		return err
	}
	renamedBits := []models.PaperBit{}
	for _, b := range bits {
		if b.Album == oldName {
			b.Album = newName
			renamedBits = append(renamedBits, b)
		}
	}
	if err := r.PaperBits.SaveAll(ctx, userId, renamedBits); err != nil {
		return fmt.Errorf("rename album in paper bits: %w", err)
	}
	return nil
}

// Albums lists the distinct album names in use by memories, sorted.
func (r *Repositories) Albums(ctx context.Context, userId string) ([]string, error) {
	memories, err := r.Memories.GetAll(ctx, userId)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	albums := []string{}
	for _, m := range memories {
		if _, ok := seen[m.Album]; ok {
			continue
		}
		seen[m.Album] = struct{}{}
		albums = append(albums, m.Album)
	}
	sort.Strings(albums)
	return albums, nil
}

// DeleteAll empties every collection of the user and returns how many
// records were removed. It keeps going past failures and returns the first.
func (r *Repositories) DeleteAll(ctx context.Context, userId string) (int, error) {
	var firstErr error
	total := 0
	record := func(n int, err error) {
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(r.Memories.DeleteAll(ctx, userId))
	record(r.PaperBits.DeleteAll(ctx, userId))
	record(r.Todos.DeleteAll(ctx, userId))
	record(r.DiaryEntries.DeleteAll(ctx, userId))
	record(r.DiaryElements.DeleteAll(ctx, userId))
	return total, firstErr
}
