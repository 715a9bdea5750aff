// Package storage persists ledger state as named blobs.
package storage

import "context"

// Store is a key-value blob store. A missing key is not an error: Get
// reports ok=false.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key.
	Clear(ctx context.Context) error
}

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
