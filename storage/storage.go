package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a visitor-scoped key/value store, the server-side counterpart of
// a browser's local storage. Values are opaque bytes.
type Backend interface {
	Get(ctx context.Context, visitorID, key string) ([]byte, error)
	Set(ctx context.Context, visitorID, key string, value []byte) error
	Delete(ctx context.Context, visitorID, key string) error
}
