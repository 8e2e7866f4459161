package repositories

import (
	"context"
	"unicode/utf8"
)

// KeyValue is one entry returned by a prefix scan.
type KeyValue struct {
	Key   string
	Value string
}

// KeyValueStore is the flat arena every repository is built on.
// A single Set either fully succeeds or fully fails; there are no multi-key transactions.
type KeyValueStore interface {
	// Get returns the value for key or an error wrapping errs.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetIfAbsent writes value only when key is unset and reports whether it did.
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Scan returns every entry whose key starts with prefix, ordered by key.
	Scan(ctx context.Context, prefix string) ([]KeyValue, error)
}

func prefixLen(prefix string) int {
	return utf8.RuneCountInString(prefix)
}
