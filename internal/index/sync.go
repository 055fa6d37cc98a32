package index

import (
	"log/slog"
	"time"

	"github.com/starford/dailylog/internal/checksum"
	"github.com/starford/dailylog/internal/parser"
	"github.com/starford/dailylog/internal/storage"
)

// Sync walks the vault and brings the files table up to date without
// reporting any change events:
//   - new/changed files are recorded with their current checksum
//   - files removed from disk are forgotten
//
// Running it at startup means only changes made while the daemon runs end
// up in the diary.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := trackFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: track failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: tracked", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// trackFile records the current checksum and title of a file. A zero
// modTime means now.
func trackFile(db *DB, path string, data []byte, modTime time.Time) error {
	return db.UpsertFile(FileRow{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Title:     parser.Parse(data).Title,
		UpdatedAt: modTime,
	})
}
