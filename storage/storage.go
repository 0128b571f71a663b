// Package storage provides the cache interface used for workflow schemas
// and other per-revision documents fetched from the evaluation backend.
package storage

import (
	"context"
	"errors"
	"time"
)

// Storage defines the primary interface for scoped document caching
type Storage interface {
	// Get retrieves data for a specific key within the given scope
	// Returns nil StorageItem if key doesn't exist or has expired
	// Returns error only for legitimate storage system failures
	Get(ctx context.Context, key string, opts ...Option) (*StorageItem, error)

	// Set stores data for a specific key within the given scope
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes data within the given scope
	// If no key specified via WithKey, removes the entire scope
	Delete(ctx context.Context, opts ...Option) error

	// Close closes the storage backend and releases resources
	Close() error
}

// StorageItem represents a stored piece of data with metadata
type StorageItem struct {
	Data      []byte     // The stored data
	CreatedAt time.Time  // When the item was created
	ExpiresAt *time.Time // When the item expires (nil = no expiration)
}

// IsExpired checks if the item has expired
func (si *StorageItem) IsExpired() bool {
	return si.ExpiresAt != nil && time.Now().After(*si.ExpiresAt)
}

// Option configures storage operations
type Option func(*Options)

// Options contains configuration for storage operations
type Options struct {
	Scope Scope          // Optional: specifies the storage scope (nil = global)
	Key   *string        // Optional: specific key (for Delete operations)
	TTL   *time.Duration // Optional: time-to-live for the data
}

// Scope represents a storage scope (workflow or revision level)
// If nil, storage operates in the global scope
type Scope interface {
	scope() // private method to ensure only our types implement this
}

// WorkflowScope groups items under one conversation workflow
type WorkflowScope struct {
	Workflow string
}

func (WorkflowScope) scope() {}

// RevisionScope groups items under one prompt revision of a workflow
type RevisionScope struct {
	Workflow   string
	RevisionID string
}

func (RevisionScope) scope() {}

// WithWorkflow scopes the operation to one workflow
func WithWorkflow(workflow string) Option {
	return func(opts *Options) {
		opts.Scope = WorkflowScope{Workflow: workflow}
	}
}

// WithRevision scopes the operation to one prompt revision of a workflow.
// Deleting a revision scope is how schema-change eviction works: the next
// read misses and the caller re-fetches from the backend.
func WithRevision(workflow, revisionID string) Option {
	return func(opts *Options) {
		opts.Scope = RevisionScope{Workflow: workflow, RevisionID: revisionID}
	}
}

// WithKey specifies a specific key for Delete operations
// If not provided, Delete removes the entire scope
func WithKey(key string) Option {
	return func(opts *Options) {
		opts.Key = &key
	}
}

// WithTTL sets a time-to-live for the stored data
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}

// Error types
var (
	// ErrInvalidOptions is returned when incompatible options are provided
	ErrInvalidOptions = errors.New("storage: invalid option combination")
)
