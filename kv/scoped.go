package kv

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
)

const (
	// Namespace used when nobody is signed in
	FallbackNamespace = "guest"

	separator = "_"
)

var userIdRegex = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidateUserId rejects ids that could make one user's prefix match
// another namespace. Ids never contain the separator, so "{id}_" is only
// ever a prefix of that user's own keys.
func ValidateUserId(userId string) error {
	if !userIdRegex.MatchString(userId) {
		return ErrInvalidUserId
	}
	if userId == FallbackNamespace {
		return ErrInvalidUserId
	}
	return nil
}

// Prefix returns the namespace prefix for a user, or the shared fallback
// prefix for an empty user id.
func Prefix(userId string) string {
	if userId == "" {
		return FallbackNamespace + separator
	}
	return userId + separator
}

func ScopedKey(userId string, key string) string {
	return Prefix(userId) + key
}

// An older client built keys as "{id}_ {key}"
func spacedKey(userId string, key string) string {
	return Prefix(userId) + " " + key
}

// ScopedStore namespaces every key by the owning user. The user id is always
// passed in by the caller; the store never looks up who is signed in.
//
// Read failures are logged and reported as "no data". Write failures are
// logged and returned; fire-and-forget callers are free to ignore them.
type ScopedStore struct {
	backend Backend
}

func NewScopedStore(backend Backend) *ScopedStore {
	return &ScopedStore{backend: backend}
}

func (s *ScopedStore) checkUser(userId string) error {
	if userId == "" {
		return nil
	}
	return ValidateUserId(userId)
}

// Get reads a scoped key. For signed-in users it recovers legacy data before
// giving up: first a key written with the stray-space prefix, then the
// unscoped key from before namespacing existed. Recovered values are moved
// to the scoped key so later reads hit it directly.
func (s *ScopedStore) Get(ctx context.Context, userId string, key string) (string, bool) {
	if err := s.checkUser(userId); err != nil {
		log.Printf("Refusing kv read of %q: %v", key, err)
		return "", false
	}

	scoped := ScopedKey(userId, key)
	value, found := s.read(ctx, scoped)
	if found || userId == "" {
		return value, found
	}

	if value, found := s.read(ctx, spacedKey(userId, key)); found {
		s.move(ctx, spacedKey(userId, key), scoped, value)
		return value, true
	}

	if value, found := s.read(ctx, key); found {
		log.Printf("Migrating unscoped key %q to user %s", key, userId)
		s.move(ctx, key, scoped, value)
		return value, true
	}

	return "", false
}

func (s *ScopedStore) read(ctx context.Context, key string) (string, bool) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("Failed to read key %q: %v", key, err)
		}
		return "", false
	}
	return value, true
}

// move writes the value to the new key before deleting the old one, so a
// failure in between leaves a duplicate rather than losing data.
func (s *ScopedStore) move(ctx context.Context, from string, to string, value string) {
	if err := s.backend.Set(ctx, to, value); err != nil {
		log.Printf("Failed to migrate key %q to %q: %v", from, to, err)
		return
	}
	if err := s.backend.Delete(ctx, from); err != nil {
		log.Printf("Failed to delete migrated key %q: %v", from, err)
	}
}

func (s *ScopedStore) Set(ctx context.Context, userId string, key string, value string) error {
	if err := s.checkUser(userId); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, ScopedKey(userId, key), value); err != nil {
		log.Printf("Failed to write key %q for user %q: %v", key, userId, err)
		return err
	}
	return nil
}

func (s *ScopedStore) Delete(ctx context.Context, userId string, key string) error {
	if err := s.checkUser(userId); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, ScopedKey(userId, key)); err != nil {
		log.Printf("Failed to delete key %q for user %q: %v", key, userId, err)
		return err
	}
	return nil
}

// ListKeys returns the user's logical keys with the namespace stripped.
func (s *ScopedStore) ListKeys(ctx context.Context, userId string) []string {
	if err := s.checkUser(userId); err != nil {
		log.Printf("Refusing kv listing: %v", err)
		return []string{}
	}

	prefix := Prefix(userId)
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		log.Printf("Failed to list keys for %q: %v", prefix, err)
		return []string{}
	}

	logical := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, prefix)
		// Keys from the stray-space bug are not addressable logical keys
		if strings.HasPrefix(name, " ") {
			continue
		}
		logical = append(logical, name)
	}
	return logical
}

// ClearWorkspace deletes every key in the user's namespace in one batch.
// The fallback namespace and unscoped keys can never be cleared this way.
func (s *ScopedStore) ClearWorkspace(ctx context.Context, userId string) error {
	if err := ValidateUserId(userId); err != nil {
		return err
	}

	keys, err := s.backend.Keys(ctx, Prefix(userId))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.backend.Delete(ctx, keys...); err != nil {
		return err
	}
	log.Printf("Cleared %d keys from workspace of user %s", len(keys), userId)
	return nil
}

// GetShared reads an app-wide unscoped setting such as the theme.
func (s *ScopedStore) GetShared(ctx context.Context, key string) (string, bool) {
	return s.read(ctx, key)
}

func (s *ScopedStore) SetShared(ctx context.Context, key string, value string) error {
	if err := s.backend.Set(ctx, key, value); err != nil {
		log.Printf("Failed to write shared key %q: %v", key, err)
		return err
	}
	return nil
}
