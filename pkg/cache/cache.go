// Package cache provides a generic in-process key/value store with
// secondary indexes. It backs the embedding cache when no Redis is
// configured, where entries are indexed by corpus session so a whole
// session can be dropped in one call.
package cache

import "errors"

// ErrIndexNotFound is returned when querying a non-existent index
var ErrIndexNotFound = errors.New("index not found")

// Cache defines the basic interface for a generic cache
type Cache[K comparable, V any] interface {
	Set(key K, value V)
	Get(key K) (V, bool)
	Del(key K)
	Len() int
	Clear()
	Contains(key K) bool
}

// Store extends Cache with secondary index support.
type Store[K comparable, V any] interface {
	Cache[K, V]

	// AddIndex registers a new secondary index
	AddIndex(name string, extractor func(V) any)

	// Find retrieves items matching the index criteria
	Find(indexName string, indexValue any) ([]V, error)

	// DeleteByIndex removes every item whose index value matches and
	// returns how many were removed.
	DeleteByIndex(indexName string, indexValue any) (int, error)

	// CountByIndex returns the number of items under an index value.
	CountByIndex(indexName string, indexValue any) (int, error)
}
