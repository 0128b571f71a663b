package promptstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is a threadsafe in-memory prompt store. It suits tests and
// single-process deployments that do not need templates to survive restarts.
type Memory struct {
	mu        sync.RWMutex
	revisions map[string]map[string]string // revision -> filename -> content

	notifier ChangeNotifier
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{revisions: make(map[string]map[string]string)}
}

// List returns the filenames present under the revision, sorted.
func (m *Memory) List(ctx context.Context, revisionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files, ok := m.revisions[revisionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]string, 0, len(files))
	for name := range files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Get returns the content of one prompt file.
func (m *Memory) Get(ctx context.Context, revisionID, filename string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files, ok := m.revisions[revisionID]
	if !ok {
		return "", ErrNotFound
	}
	content, ok := files[filename]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

// Put creates or replaces one prompt file.
func (m *Memory) Put(ctx context.Context, revisionID, filename, content string) error {
	m.mu.Lock()
	files, ok := m.revisions[revisionID]
	if !ok {
		files = make(map[string]string)
		m.revisions[revisionID] = files
	}
	files[filename] = content
	m.mu.Unlock()

	// notify listeners of change (best-effort)
	go func() { _ = m.notifier.Notify(context.Background()) }()
	return nil
}

// EnsureDefaults seeds missing required prompts with their default content.
func (m *Memory) EnsureDefaults(ctx context.Context, revisionID string) ([]string, error) {
	return seedDefaults(ctx, m, revisionID)
}

// Subscriber returns a channel signalled whenever a prompt is written.
func (m *Memory) Subscriber() <-chan struct{} { return m.notifier.Subscriber() }

var _ Store = (*Memory)(nil)
