package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/zlnvch/heartfolio/diary"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/worker"
)

var ErrEntryMissing = errors.New("diary entry not found")

type EntryInput struct {
	Title string `json:"title"`
	Color string `json:"color"`
}

func (s *Service) CreateEntry(ctx context.Context, userId string, in EntryInput) (models.DiaryEntry, error) {
	title, err := cleanText(in.Title, maxTitleLength)
	if err != nil {
		return models.DiaryEntry{}, err
	}
	color := in.Color
	if color == "" {
		color = s.pick(models.PaperColors)
	}
	if err := ValidateColor(color); err != nil {
		return models.DiaryEntry{}, err
	}

	entry := models.DiaryEntry{
		Id:            newId(),
		Title:         title,
		Date:          today(),
		Color:         color,
		SchemaVersion: models.DiaryEntrySchema.Version(),
	}
	if err := s.Repos.DiaryEntries.Save(ctx, userId, entry); err != nil {
		return models.DiaryEntry{}, err
	}
	return entry, nil
}

func (s *Service) ListEntries(ctx context.Context, userId string) ([]models.DiaryEntry, error) {
	return s.Repos.DiaryEntries.GetAll(ctx, userId)
}

func (s *Service) findEntry(ctx context.Context, userId string, id string) (models.DiaryEntry, error) {
	entries, err := s.Repos.DiaryEntries.GetAll(ctx, userId)
	if err != nil {
		return models.DiaryEntry{}, err
	}
	for _, e := range entries {
		if e.Id == id {
			return e, nil
		}
	}
	return models.DiaryEntry{}, ErrEntryMissing
}

// UpdateEntry renames or recolors an entry. Empty fields are left alone.
func (s *Service) UpdateEntry(ctx context.Context, userId string, id string, in EntryInput) (models.DiaryEntry, error) {
	entry, err := s.findEntry(ctx, userId, id)
	if err != nil {
		return models.DiaryEntry{}, err
	}
	if strings.TrimSpace(in.Title) != "" {
		if entry.Title, err = cleanText(in.Title, maxTitleLength); err != nil {
			return models.DiaryEntry{}, err
		}
	}
	if in.Color != "" {
		if err := ValidateColor(in.Color); err != nil {
			return models.DiaryEntry{}, err
		}
		entry.Color = in.Color
	}
	if err := s.Repos.DiaryEntries.Save(ctx, userId, entry); err != nil {
		return models.DiaryEntry{}, err
	}
	return entry, nil
}

// DeleteEntry removes the entry and everything placed on it.
func (s *Service) DeleteEntry(ctx context.Context, userId string, id string) error {
	return s.Repos.DeleteDiaryEntry(ctx, userId, id)
}

func (s *Service) ListElements(ctx context.Context, userId string, entryId string) ([]models.DiaryElement, error) {
	elements, err := s.Repos.ElementsForEntry(ctx, userId, entryId)
	if err != nil {
		return nil, err
	}
	sortByCreation(elements)
	return elements, nil
}

// createdAt reads the creation time in milliseconds out of an element id.
// Ids are "{kind}_{uuidv7}", or "{kind}_{unixMillis}_{random}" for
// elements written by older app versions.
func createdAt(id string) (int64, bool) {
	_, rest, ok := strings.Cut(id, "_")
	if !ok {
		return 0, false
	}

	if u, err := uuid.FromString(rest); err == nil {
		if u.Version() != uuid.V7 {
			return 0, false
		}
		// The first 48 bits of a v7 UUID are the unix time in milliseconds
		var ms int64
		for _, b := range u[:6] {
			ms = ms<<8 | int64(b)
		}
		return ms, true
	}

	stamp, _, _ := strings.Cut(rest, "_")
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return ms, true
}

// sortByCreation orders elements by the time they were placed on the page.
// Elements whose id carries no time keep their stored order, ahead of the
// rest.
func sortByCreation(elements []models.DiaryElement) {
	sort.SliceStable(elements, func(i, j int) bool {
		ti, okI := createdAt(elements[i].Id)
		tj, okJ := createdAt(elements[j].Id)
		if !okI || !okJ {
			return !okI && okJ
		}
		if ti != tj {
			return ti < tj
		}
		return elements[i].Id < elements[j].Id
	})
}

// OpenPage loads an entry into an edit model whose writes go through the
// Persister.
func (s *Service) OpenPage(ctx context.Context, userId string, entryId string, opts diary.Options) (*diary.Page, error) {
	if _, err := s.findEntry(ctx, userId, entryId); err != nil {
		return nil, err
	}
	elements, err := s.ListElements(ctx, userId, entryId)
	if err != nil {
		return nil, err
	}
	persist := worker.NewPagePersistence(s.Persister, s.Repos, userId, entryId)
	return diary.NewPage(entryId, elements, persist, opts), nil
}
