package storage

import (
	"context"
	"io"
)

// Storage persists opaque blobs under caller-chosen keys. The dev mail
// transport uses it to keep copies of rendered emails.
type Storage interface {
	// Save writes data under key and returns a location describing where it
	// ended up (a filesystem path for LocalStorage).
	Save(ctx context.Context, key string, data io.Reader, contentType string) (location string, err error)

	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
