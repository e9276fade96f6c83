package dataset

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	apperrors "campaign-analytics/pkg/errors"
	"campaign-analytics/pkg/logger"
)

// Watch monitors the loader's local CSV file and installs a freshly loaded
// table into h each time the file is written or replaced. It runs until ctx
// is cancelled.
//
// The parent directory is watched rather than the file, so rename-based saves
// that swap the inode keep being observed.
//
// A failed reload is logged and the previous table stays active. Snapshot
// fallback is never used on reload.
func (l *Loader) Watch(ctx context.Context, h *Holder) error {
	if IsRemote(l.Source) {
		return apperrors.Newf(apperrors.ErrorTypeConfig, "cannot watch remote source %s", l.Source)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "create file watcher")
	}
	defer watcher.Close()

	path := filepath.Clean(l.Source)
	if _, err := os.Stat(path); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeNotFound, "watch dataset file")
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeNotFound, "watch dataset directory")
	}

	reloader := *l
	reloader.Fallback = false

	log := logger.WithContext(ctx)
	log.Info("watching dataset for changes", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// A rename onto the file arrives as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			table, stats, err := reloader.Load(ctx)
			if err != nil {
				log.Error("dataset reload failed, keeping previous table",
					zap.String("path", path), zap.Error(err))
				continue
			}

			h.Swap(table)
			log.Info("dataset reloaded",
				zap.String("load_id", stats.LoadID),
				zap.Int("records", stats.RecordsValid),
			)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("dataset watcher error", zap.Error(err))
		}
	}
}
