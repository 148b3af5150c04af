// Package storage provides the key-value persistence used by Sprintly.
//
// Keys are flat strings such as "sprintly_tasks". Every backend treats a
// missing key as ErrNotFound so callers can tell "no data yet" apart from an
// I/O failure.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist in storage.
var ErrNotFound = errors.New("not found")

// Storage is an opaque blocking get/set store.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the keys that start with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Closer is implemented by backends that hold a connection.
type Closer interface {
	Close() error
}

// Close releases s if it holds resources.
func Close(s Storage) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
