package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// Storage is a string key/value store scoped to a single owner, the server-side
// counterpart of a browser's local storage.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Provider hands out the storage scope of an owner.
type Provider interface {
	Scope(owner string) Storage
}
