// Package memory provides an in-memory implementation of the storage interface
// using github.com/hashicorp/golang-lru/v2, sized for schema-document caching.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Insight-Services-APAC/ingenious-aux/storage"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Storage implements the storage.Storage interface using in-memory storage
type Storage struct {
	mu        sync.RWMutex
	cache     *lru.Cache[string, *storage.StorageItem]
	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a new in-memory storage implementation
func New(maxItems int) (*Storage, error) {
	cache, err := lru.New[string, *storage.StorageItem](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Storage{
		cache: cache,
		stop:  make(chan struct{}),
	}

	// Start background cleanup of expired items
	go s.cleanupExpired()

	return s, nil
}

// Get retrieves data for a specific key within the given scope
func (s *Storage) Get(ctx context.Context, key string, opts ...storage.Option) (*storage.StorageItem, error) {
	options := &storage.Options{}
	for _, opt := range opts {
		opt(options)
	}

	storageKey := s.buildKey(options.Scope, key)

	s.mu.RLock()
	item, exists := s.cache.Get(storageKey)
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if item.IsExpired() {
		s.mu.Lock()
		s.cache.Remove(storageKey)
		s.mu.Unlock()
		return nil, nil
	}

	return item, nil
}

// Set stores data for a specific key within the given scope
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	options := &storage.Options{}
	for _, opt := range opts {
		opt(options)
	}

	storageKey := s.buildKey(options.Scope, key)

	now := time.Now()
	item := &storage.StorageItem{
		Data:      make([]byte, len(data)),
		CreatedAt: now,
	}
	copy(item.Data, data)

	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
	}

	s.mu.Lock()
	s.cache.Add(storageKey, item)
	s.mu.Unlock()

	return nil
}

// Delete removes data within the given scope
func (s *Storage) Delete(ctx context.Context, opts ...storage.Option) error {
	options := &storage.Options{}
	for _, opt := range opts {
		opt(options)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if options.Key != nil {
		storageKey := s.buildKey(options.Scope, *options.Key)
		s.cache.Remove(storageKey)
	} else {
		prefix := s.buildScopePrefix(options.Scope)
		s.deleteByPrefix(prefix)
	}

	return nil
}

// Close stops the background cleanup goroutine and releases resources.
// It is safe to call more than once.
func (s *Storage) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()
	return nil
}

// buildKey creates a storage key from scope and key
func (s *Storage) buildKey(scope storage.Scope, key string) string {
	switch sc := scope.(type) {
	case storage.WorkflowScope:
		return fmt.Sprintf("workflow:%s:key:%s", sc.Workflow, key)
	case storage.RevisionScope:
		return fmt.Sprintf("workflow:%s:revision:%s:key:%s", sc.Workflow, sc.RevisionID, key)
	case nil:
		return fmt.Sprintf("global:key:%s", key)
	default:
		// This should never happen due to the private scope() method
		return fmt.Sprintf("unknown:key:%s", key)
	}
}

// buildScopePrefix creates a prefix for scope-wide operations
func (s *Storage) buildScopePrefix(scope storage.Scope) string {
	switch sc := scope.(type) {
	case storage.WorkflowScope:
		return fmt.Sprintf("workflow:%s:", sc.Workflow)
	case storage.RevisionScope:
		return fmt.Sprintf("workflow:%s:revision:%s:", sc.Workflow, sc.RevisionID)
	case nil:
		return "global:"
	default:
		return "unknown:"
	}
}

// deleteByPrefix removes all keys with the given prefix
func (s *Storage) deleteByPrefix(prefix string) {
	// The LRU cache has no prefix iteration, so walk all keys
	keys := s.cache.Keys()

	for _, key := range keys {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			s.cache.Remove(key)
		}
	}
}

// cleanupExpired runs a background goroutine to periodically clean up expired
// items until Close is called.
func (s *Storage) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		keys := s.cache.Keys()
		now := time.Now()

		for _, key := range keys {
			if item, exists := s.cache.Peek(key); exists {
				if item.ExpiresAt != nil && now.After(*item.ExpiresAt) {
					s.cache.Remove(key)
				}
			}
		}
		s.mu.Unlock()
	}
}
