package models

import (
	"encoding/json"
	"fmt"
)

// Migration upgrades a raw record by one schema version in place.
type Migration func(doc map[string]any)

// Schema describes how records of one kind evolved. The current version is
// the number of migrations; a record at version v needs Migrations[v:].
type Schema struct {
	Kind       string
	Migrations []Migration
}

func (s Schema) Version() int {
	return len(s.Migrations)
}

// Upgrade brings a stored record up to the current version. It returns the
// record unchanged (and false) when nothing had to be migrated.
func (s Schema) Upgrade(data []byte) ([]byte, bool, error) {
	var head struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	// A non-numeric schemaVersion counts as version 0
	if err := json.Unmarshal(data, &head); err != nil {
		head.SchemaVersion = 0
	}
	if head.SchemaVersion >= s.Version() {
		return data, false, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decode %s record: %w", s.Kind, err)
	}
	if doc == nil {
		return nil, false, fmt.Errorf("decode %s record: not an object", s.Kind)
	}

	for v := head.SchemaVersion; v < s.Version(); v++ {
		s.Migrations[v](doc)
	}
	doc["schemaVersion"] = s.Version()

	upgraded, err := json.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s record: %w", s.Kind, err)
	}
	return upgraded, true, nil
}

// Decode upgrades and unmarshals one record.
func Decode[T any](s Schema, data []byte) (T, bool, error) {
	var item T
	upgraded, migrated, err := s.Upgrade(data)
	if err != nil {
		return item, false, err
	}
	if err := json.Unmarshal(upgraded, &item); err != nil {
		return item, false, fmt.Errorf("decode %s record: %w", s.Kind, err)
	}
	return item, migrated, nil
}

var (
	MemorySchema = Schema{
		Kind:       "memory",
		Migrations: []Migration{backfillAlbum},
	}

	PaperBitSchema = Schema{
		Kind:       "paper_bit",
		Migrations: []Migration{backfillPaperBit},
	}

	TodoSchema = Schema{Kind: "todo"}

	DiaryEntrySchema = Schema{Kind: "diary_entry"}

	DiaryElementSchema = Schema{
		Kind:       "diary_element",
		Migrations: []Migration{backfillScale},
	}
)

func backfillAlbum(doc map[string]any) {
	if album, _ := doc["album"].(string); album == "" {
		doc["album"] = DefaultAlbum
	}
}

func backfillPaperBit(doc map[string]any) {
	backfillAlbum(doc)
	defaultNumber(doc, "width", 150)
	defaultNumber(doc, "x", 20)
	defaultNumber(doc, "y", 100)
	defaultNumber(doc, "rotation", 0)
}

func backfillScale(doc map[string]any) {
	defaultNumber(doc, "scale", 1)
}

// defaultNumber replaces a missing or non-numeric field. JSON has no NaN, so
// a NaN written by an older client arrives here as null.
func defaultNumber(doc map[string]any, field string, value float64) {
	if _, ok := doc[field].(float64); !ok {
		doc[field] = value
	}
}
