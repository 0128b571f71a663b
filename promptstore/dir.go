package promptstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Dir is a prompt store over an OS directory laid out as
// {root}/{revisionID}/{filename}. Edits made out of band (an operator
// fixing a template in place) are picked up through an fsnotify watcher and
// surfaced via Subscriber.
//
// Security: the root is symlink-resolved at construction and all reads and
// writes are constrained to it; revision and file names must be single path
// segments.
type Dir struct {
	root string
	log  *slog.Logger

	notifier  ChangeNotifier
	watchOnce sync.Once
	watching  atomic.Bool
}

// DirOption configures a Dir store.
type DirOption func(*Dir)

// WithDirLogHandler directs the watcher's diagnostic logging at the given
// handler.
func WithDirLogHandler(h slog.Handler) DirOption {
	return func(d *Dir) {
		if h != nil {
			d.log = slog.New(h)
		}
	}
}

// NewDir constructs a directory-backed prompt store rooted at root. The
// directory must exist.
func NewDir(root string, opts ...DirOption) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("promptstore: resolve root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("promptstore: resolve root: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("promptstore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("promptstore: root %s is not a directory", root)
	}

	d := &Dir{
		root: real,
		log:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// List returns the filenames present under the revision, sorted.
func (d *Dir) List(ctx context.Context, revisionID string) ([]string, error) {
	dir, err := d.revisionPath(revisionID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("promptstore: list revision %s: %w", revisionID, err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		out = append(out, entry.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Get returns the content of one prompt file.
func (d *Dir) Get(ctx context.Context, revisionID, filename string) (string, error) {
	p, err := d.filePath(revisionID, filename)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("promptstore: resolve %s: %w", filename, err)
	}
	if !within(real, d.root) {
		return "", ErrNotFound
	}
	data, err := os.ReadFile(real)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("promptstore: read %s: %w", filename, err)
	}
	return string(data), nil
}

// Put creates or replaces one prompt file, creating the revision directory
// as needed. The write goes through a temp file and rename so a concurrent
// reader never observes a half-written template.
func (d *Dir) Put(ctx context.Context, revisionID, filename, content string) error {
	p, err := d.filePath(revisionID, filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("promptstore: create revision dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("promptstore: write %s: %w", filename, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("promptstore: write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("promptstore: write %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("promptstore: write %s: %w", filename, err)
	}

	go func() { _ = d.notifier.Notify(context.Background()) }()
	return nil
}

// EnsureDefaults seeds missing required prompts with their default content.
func (d *Dir) EnsureDefaults(ctx context.Context, revisionID string) ([]string, error) {
	return seedDefaults(ctx, d, revisionID)
}

// Subscriber returns a channel signalled whenever a template changes,
// whether through Put or out-of-band on disk. The filesystem watcher starts
// lazily on the first call and stops when ctx is cancelled.
func (d *Dir) Subscriber(ctx context.Context) <-chan struct{} {
	d.watchOnce.Do(func() {
		go d.runWatcher(ctx)
	})
	return d.notifier.Subscriber()
}

// runWatcher mirrors on-disk edits into notifier signals using fsnotify.
// Revision directories created after startup are added to the watch set as
// they appear.
func (d *Dir) runWatcher(ctx context.Context) {
	if !d.watching.CompareAndSwap(false, true) {
		return
	}
	defer d.watching.Store(false)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		d.log.Debug("fsnotify unavailable", slog.String("err", err.Error()))
		return
	}
	defer func() {
		_ = w.Close()
	}()

	addDirs := func() error {
		return filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !entry.IsDir() {
				return nil
			}
			return w.Add(p)
		})
	}
	if err := addDirs(); err != nil {
		d.log.Debug("fsnotify add dirs failed", slog.String("err", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				_ = d.notifier.Notify(ctx)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.log.Debug("fsnotify error", slog.String("err", err.Error()))
		}
	}
}

func (d *Dir) revisionPath(revisionID string) (string, error) {
	if !validSegment(revisionID) {
		return "", fmt.Errorf("promptstore: invalid revision id %q: %w", revisionID, ErrNotFound)
	}
	return filepath.Join(d.root, revisionID), nil
}

func (d *Dir) filePath(revisionID, filename string) (string, error) {
	dir, err := d.revisionPath(revisionID)
	if err != nil {
		return "", err
	}
	if !validSegment(filename) {
		return "", fmt.Errorf("promptstore: invalid filename %q: %w", filename, ErrNotFound)
	}
	return filepath.Join(dir, filename), nil
}

// validSegment accepts a single, clean path segment.
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsAny(s, "/\\") {
		return false
	}
	return !strings.Contains(s, string(os.PathSeparator))
}

// within returns true if target is the same as root or a descendant of root.
func within(target, root string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || strings.HasPrefix(rel, "../") {
		return false
	}
	return true
}

var _ Store = (*Dir)(nil)
