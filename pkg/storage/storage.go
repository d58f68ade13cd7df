// Package storage abstracts where backup archives are kept: a local
// directory or an S3 bucket, selected by environment configuration.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist in storage.
var ErrNotFound = errors.New("not found")

// Storage provides key-value style archive storage. Keys use forward
// slashes regardless of backend.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	// List returns all keys under prefix, recursively, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
