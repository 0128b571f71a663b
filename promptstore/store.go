// Package promptstore persists the prompt templates of a workflow revision
// and signals interested parties when templates change.
package promptstore

import (
	"context"
	"errors"

	"github.com/Insight-Services-APAC/ingenious-aux/workflows"
)

// ErrNotFound is returned when a revision or prompt file does not exist.
var ErrNotFound = errors.New("promptstore: not found")

// Store manages prompt template content per revision.
type Store interface {
	// List returns the filenames present under the revision, sorted.
	List(ctx context.Context, revisionID string) ([]string, error)

	// Get returns the content of one prompt file.
	Get(ctx context.Context, revisionID, filename string) (string, error)

	// Put creates or replaces one prompt file.
	Put(ctx context.Context, revisionID, filename, content string) error

	// EnsureDefaults seeds every required prompt that is missing from the
	// revision with its default content and returns the filenames it wrote.
	EnsureDefaults(ctx context.Context, revisionID string) ([]string, error)
}

// seedDefaults writes the catalogue's default content for any required
// prompt the revision lacks. Shared by the store implementations.
func seedDefaults(ctx context.Context, s Store, revisionID string) ([]string, error) {
	existing, err := s.List(ctx, revisionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	var created []string
	for _, tpl := range workflows.RequiredPrompts() {
		if have[tpl.Filename] {
			continue
		}
		if err := s.Put(ctx, revisionID, tpl.Filename, tpl.DefaultContent); err != nil {
			return created, err
		}
		created = append(created, tpl.Filename)
	}
	return created, nil
}
