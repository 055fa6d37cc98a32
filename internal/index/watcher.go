package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dailylog/internal/checksum"
	"github.com/starford/dailylog/internal/models"
	"github.com/starford/dailylog/internal/storage"
)

const renameDebounce = 200 * time.Millisecond

// EventHandler receives the change events detected by Watch.
type EventHandler func(ctx context.Context, ev models.ChangeEvent)

// Watch starts an fsnotify watcher on the vault root and turns file system
// notifications into created/modified change events until ctx is cancelled.
//
// A Markdown file the index has never seen is reported as created; a known
// file whose content changed is reported as modified. Writes that leave the
// content untouched are dropped, and editors that save through a rename
// (which surfaces as Create on an existing path) produce modified events.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass that forgets vanished files
// and reports files that appeared under a new name.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, handle EventHandler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(renameDebounce)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(renameDebounce)
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
			reconcileAfterRename(ctx, db, store, logger, handle)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if hidden(vaultRoot, absPath) {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					scanNewDir(ctx, db, store, vaultRoot, absPath, logger, handle)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") || hidden(vaultRoot, absPath) {
				continue
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind, changed := observe(db, store, rel, logger)
				if !changed {
					continue
				}
				logger.Debug("watcher: change", slog.String("path", rel), slog.String("kind", string(kind)))
				if handle != nil {
					handle(ctx, models.ChangeEvent{Path: rel, Kind: kind})
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteFile(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The row is
				// kept: editors that save by moving the original to a
				// backup recreate the same path right after, and that
				// Create must still be seen as an edit. The debounced
				// pass forgets the path if it stays gone.
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

// observe reads rel, compares it with the tracked checksum and records the
// new state. It reports the change kind and whether the content changed.
func observe(db *DB, store storage.Provider, rel string, logger *slog.Logger) (models.Kind, bool) {
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	known, err := db.GetChecksum(rel)
	if err != nil {
		logger.Warn("watcher: lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	if checksum.Matches(data, known) {
		return "", false
	}
	if err := trackFile(db, rel, data, time.Time{}); err != nil {
		logger.Warn("watcher: track failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	if known == "" {
		return models.KindCreated, true
	}
	return models.KindModified, true
}

// reconcileAfterRename forgets files that no longer exist on disk and
// reports files that are on disk but untracked (or changed) as changes.
func reconcileAfterRename(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, handle EventHandler) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteFile(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		kind, changed := observe(db, store, p, logger)
		if changed && handle != nil {
			logger.Debug("reconcile: change", slog.String("path", p), slog.String("kind", string(kind)))
			handle(ctx, models.ChangeEvent{Path: p, Kind: kind})
		}
	}
}

// scanNewDir reports the Markdown files found in a newly created directory,
// e.g. a folder moved into the vault.
func scanNewDir(ctx context.Context, db *DB, store storage.Provider, vaultRoot, dirPath string, logger *slog.Logger, handle EventHandler) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		kind, changed := observe(db, store, rel, logger)
		if changed && handle != nil {
			logger.Debug("watcher: change in new dir", slog.String("path", rel), slog.String("kind", string(kind)))
			handle(ctx, models.ChangeEvent{Path: rel, Kind: kind})
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// hidden reports whether any segment of p below the vault root starts with
// a dot (.obsidian, .git, .trash).
func hidden(vaultRoot, p string) bool {
	rel, err := filepath.Rel(vaultRoot, p)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}
