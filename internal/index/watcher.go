package index

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verdin/raiz/internal/docstore"
	"github.com/verdin/raiz/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on the documents directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation, so dropping a .txt file into documents/
// from outside the application still registers it with the project.
//
// Rename events fire on the OLD path only; a short debounced reconciliation
// pass catches the new path and removes stale index entries.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	docsDir := filepath.Join(store.Root(), docstore.Dir)
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(docsDir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", docsDir))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(strings.ToLower(name), ".txt") {
				continue
			}
			// Atomic writes land as renames of temp files; the write to the
			// temp name was already skipped by the suffix check above.
			rel := path.Join(docstore.Dir, name)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("document", name), slog.String("error", readErr.Error()))
					continue
				}
				known, _ := db.GetChecksum(name)
				if idxErr := db.UpsertDocument(name, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("document", name), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if known == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("document", name), slog.String("op", kind))
				if cb != nil {
					cb(kind, name)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteDocument(name); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("document", name), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("document", name))
				if cb != nil {
					cb("deleted", name)
				}

			case ev.Op&fsnotify.Rename != 0:
				if delErr := db.DeleteDocument(name); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("document", name), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("document", name))
					if cb != nil {
						cb("deleted", name)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileAfterRename does a lightweight sync using batch lookups: index
// entries without a file on disk are removed, and on-disk documents that are
// missing or changed are indexed.
func reconcileAfterRename(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List(docstore.Dir)
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[path.Base(m.Path)] = m.Checksum
	}

	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if delErr := db.DeleteDocument(name); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("document", name))
				if cb != nil {
					cb("deleted", name)
				}
			}
		}
	}

	for name, cs := range disk {
		if checksums[name] == cs {
			continue
		}
		data, readErr := store.Read(path.Join(docstore.Dir, name))
		if readErr != nil {
			continue
		}
		if idxErr := db.UpsertDocument(name, data); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("document", name))
			if cb != nil {
				cb("created", name)
			}
		}
	}
}
