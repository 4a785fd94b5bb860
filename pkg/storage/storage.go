package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested path does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrNotProvisioned is returned when the storage backend has not been
// initialized yet. Callers are expected to run Provision (crewd setup)
// before any records can be written.
var ErrNotProvisioned = errors.New("storage not provisioned")

// Storage provides an abstraction over key-value style record storage.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)

	// Provision initializes the backend so that records can be stored.
	// Provisioning an already provisioned backend is a no-op.
	Provision(ctx context.Context) error
	// Provisioned reports whether Provision has been run.
	Provisioned(ctx context.Context) (bool, error)
}
