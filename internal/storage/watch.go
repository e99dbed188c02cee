package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeOp says what happened to a collection file.
type ChangeOp string

const (
	// ChangeWrite covers in-place writes and atomic replacements.
	ChangeWrite ChangeOp = "write"
	// ChangeRemove covers the file being deleted or moved away.
	ChangeRemove ChangeOp = "remove"
)

// ChangeEvent reports a change to one collection, named without its .json suffix.
type ChangeEvent struct {
	Collection string   `json:"collection"`
	Op         ChangeOp `json:"op"`
}

// Watch reports changes to the collection files, whether made by this store
// or another process, until ctx is cancelled. The channel is closed when the
// watcher stops.
func (s *JSONStore) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}
	out := make(chan ChangeEvent, 16)
	go s.watchLoop(ctx, w, out)
	return out, nil
}

func (s *JSONStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- ChangeEvent) {
	defer close(out)
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			change, ok := changeFor(ev)
			if !ok {
				continue
			}
			s.log.Debug("collection changed", zap.String("collection", change.Collection), zap.String("op", string(change.Op)))
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// changeFor maps a raw event to a collection change. Temp files, foreign
// files and permission changes are dropped.
func changeFor(ev fsnotify.Event) (ChangeEvent, bool) {
	if isTempFile(ev.Name) {
		return ChangeEvent{}, false
	}
	name := filepath.Base(ev.Name)
	if !slices.Contains(collectionFiles, name) {
		return ChangeEvent{}, false
	}
	change := ChangeEvent{Collection: collectionName(name)}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		change.Op = ChangeWrite
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		change.Op = ChangeRemove
	default:
		return ChangeEvent{}, false
	}
	return change, true
}
