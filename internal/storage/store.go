// Package storage wraps the object store that holds uploaded character images.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of an S3 bucket the dashboard needs.
type ObjectStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, name string) error
	// PublicURL is the address clients fetch name from.
	PublicURL(name string) string
	Ping(ctx context.Context) error
}
