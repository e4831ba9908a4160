package index

import (
	"log/slog"
	"path"

	"github.com/verdin/raiz/internal/docstore"
	"github.com/verdin/raiz/internal/storage"
)

// Sync walks the documents directory and brings the index up to date:
//   - new/changed documents are upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List(docstore.Dir)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		name := path.Base(m.Path)
		disk[name] = struct{}{}

		if checksums[name] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("document", name), slog.String("error", err.Error()))
			continue
		}
		if err := db.UpsertDocument(name, data); err != nil {
			logger.Warn("sync: index failed", slog.String("document", name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("document", name))
		}
	}

	// Remove stale entries.
	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.DeleteDocument(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("document", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("document", name))
			}
		}
	}

	return nil
}
