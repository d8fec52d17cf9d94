package kv

import (
	"context"
	"errors"
)

// Backend is a flat persistent string store. Implementations do no scoping
// of their own; ScopedStore layers the per-user namespace on top.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// PubSub carries small notifications between sessions, e.g. telling open
// websocket sessions that a user's workspace was wiped.
type PubSub interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error
}

var (
	ErrNotFound      = errors.New("key does not exist")
	ErrInvalidUserId = errors.New("invalid user id")
)
