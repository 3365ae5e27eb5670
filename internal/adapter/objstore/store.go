// Package objstore provides object storage with list/get/put/head/copy/delete
// semantics and prefix enumeration. All artifact and catalog I/O in the
// engine reduces to these six operations.
package objstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("object not found")

// Store is a key-value blob store bound to a single bucket.
type Store interface {
	// Get returns the object bytes at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes an object, overwriting any existing one.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Head reports whether an object exists at key.
	Head(ctx context.Context, key string) (bool, error)
	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Copy duplicates src to dst within the bucket.
	Copy(ctx context.Context, src, dst string) error
	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
