package cache

import (
	"sync"
)

// MemoryCache implements a thread-safe in-memory cache with indexing support.
type MemoryCache[K comparable, V any] struct {
	mu sync.RWMutex

	data map[K]V

	// extractors derive index values from items
	extractors map[string]func(V) any

	// indices: indexName -> indexValue -> set of keys
	indices map[string]map[any]map[K]struct{}
}

var _ Store[string, int] = (*MemoryCache[string, int])(nil)

// NewMemoryCache creates a new instance of MemoryCache
func NewMemoryCache[K comparable, V any]() *MemoryCache[K, V] {
	return &MemoryCache[K, V]{
		data:       make(map[K]V),
		extractors: make(map[string]func(V) any),
		indices:    make(map[string]map[any]map[K]struct{}),
	}
}

// Set adds or updates an item in the cache
func (c *MemoryCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, exists := c.data[key]; exists {
		c.removeFromIndexes(key, old)
	}
	c.data[key] = value
	c.addToIndexes(key, value)
}

// Get retrieves an item from the cache
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	return val, ok
}

// Del removes an item from the cache
func (c *MemoryCache[K, V]) Del(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

// Len returns the number of items in the cache
func (c *MemoryCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear removes all items but keeps the registered indexes.
func (c *MemoryCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]V)
	c.indices = make(map[string]map[any]map[K]struct{})
	for name := range c.extractors {
		c.indices[name] = make(map[any]map[K]struct{})
	}
}

// Contains checks if a key exists
func (c *MemoryCache[K, V]) Contains(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.data[key]
	return exists
}

// AddIndex registers a new secondary index and indexes existing items.
func (c *MemoryCache[K, V]) AddIndex(name string, extractor func(V) any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.extractors[name] = extractor
	c.indices[name] = make(map[any]map[K]struct{})
	for k, v := range c.data {
		c.addIndexEntry(name, extractor(v), k)
	}
}

// Find retrieves items matching the index criteria
func (c *MemoryCache[K, V]) Find(indexName string, indexValue any) ([]V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.extractors[indexName]; !ok {
		return nil, ErrIndexNotFound
	}

	keySet := c.indices[indexName][indexValue]
	results := make([]V, 0, len(keySet))
	for k := range keySet {
		if val, exists := c.data[k]; exists {
			results = append(results, val)
		}
	}
	return results, nil
}

// DeleteByIndex removes all items indexed under indexValue.
func (c *MemoryCache[K, V]) DeleteByIndex(indexName string, indexValue any) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.extractors[indexName]; !ok {
		return 0, ErrIndexNotFound
	}

	keySet := c.indices[indexName][indexValue]
	keys := make([]K, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	for _, k := range keys {
		c.deleteLocked(k)
	}
	return len(keys), nil
}

// CountByIndex returns the number of items indexed under indexValue.
func (c *MemoryCache[K, V]) CountByIndex(indexName string, indexValue any) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.extractors[indexName]; !ok {
		return 0, ErrIndexNotFound
	}
	return len(c.indices[indexName][indexValue]), nil
}

// helpers below assume c.mu is held

func (c *MemoryCache[K, V]) deleteLocked(key K) {
	if old, exists := c.data[key]; exists {
		c.removeFromIndexes(key, old)
		delete(c.data, key)
	}
}

func (c *MemoryCache[K, V]) addToIndexes(key K, value V) {
	for name, extractor := range c.extractors {
		c.addIndexEntry(name, extractor(value), key)
	}
}

func (c *MemoryCache[K, V]) removeFromIndexes(key K, value V) {
	for name, extractor := range c.extractors {
		c.removeIndexEntry(name, extractor(value), key)
	}
}

func (c *MemoryCache[K, V]) addIndexEntry(indexName string, indexValue any, key K) {
	index, ok := c.indices[indexName]
	if !ok {
		index = make(map[any]map[K]struct{})
		c.indices[indexName] = index
	}
	keySet, ok := index[indexValue]
	if !ok {
		keySet = make(map[K]struct{})
		index[indexValue] = keySet
	}
	keySet[key] = struct{}{}
}

func (c *MemoryCache[K, V]) removeIndexEntry(indexName string, indexValue any, key K) {
	if index, ok := c.indices[indexName]; ok {
		if keySet, ok := index[indexValue]; ok {
			delete(keySet, key)
			if len(keySet) == 0 {
				delete(index, indexValue)
			}
		}
	}
}
