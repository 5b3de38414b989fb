package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ChangeOp describes what happened to an object on disk
type ChangeOp string

const (
	ChangeWrite  ChangeOp = "write"
	ChangeRemove ChangeOp = "remove"
)

// Change reports an external modification to a stored object. Objects are
// normally written only through the backend; a change event means something
// else touched the file.
type Change struct {
	ObjectKey string
	Op        ChangeOp
}

// Watch reports external changes to objects under the backend's base
// directory until ctx is cancelled. New subdirectories are added to the
// watch as they appear. The returned channel is closed on cancellation or
// watcher failure.
func (b *Backend) Watch(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := addRecursive(watcher, b.baseDir); err != nil {
		watcher.Close()
		return nil, err
	}

	changes := make(chan Change)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = addRecursive(watcher, event.Name)
						continue
					}
				}

				change, ok := b.toChange(event)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return changes, nil
}

func (b *Backend) toChange(event fsnotify.Event) (Change, bool) {
	rel, err := filepath.Rel(b.baseDir, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Change{}, false
	}
	objectKey := filepath.ToSlash(rel)

	switch {
	case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return Change{}, false
		}
		return Change{ObjectKey: objectKey, Op: ChangeWrite}, true
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		return Change{ObjectKey: objectKey, Op: ChangeRemove}, true
	}
	return Change{}, false
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
