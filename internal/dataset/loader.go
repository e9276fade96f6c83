package dataset

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
	"campaign-analytics/pkg/logger"
	"campaign-analytics/pkg/metrics"
)

// SnapshotStore persists loaded tables and the load history.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, stats model.LoadStats, t *model.Table) error
	SaveLoadError(ctx context.Context, loadID, source string, loadErr error) error
	LatestSnapshot(ctx context.Context) (*model.Table, error)
}

// Loader acquires the dataset from Source.
type Loader struct {
	Source  string
	Client  *http.Client
	Retry   RetryConfig
	Timeout time.Duration

	// Store is optional. When set, successful loads are persisted and, if
	// Fallback is true, a failed load is served from the latest snapshot.
	Store    SnapshotStore
	Fallback bool
}

// Load fetches and parses the dataset. Each call gets its own load id.
func (l *Loader) Load(ctx context.Context) (*model.Table, model.LoadStats, error) {
	loadID := uuid.New().String()
	ctx = context.WithValue(ctx, logger.LoadIDKey, loadID)
	log := logger.WithContext(ctx)

	var (
		table *model.Table
		stats model.LoadStats
	)
	err := Retry(ctx, l.Retry, func(ctx context.Context, attempt int) error {
		var err error
		table, stats, err = l.attempt(ctx, loadID)
		return err
	})

	if err == nil {
		metrics.RecordLoad(model.OriginSource, nil)
		metrics.SetDataset(stats.RecordsValid, stats.RecordsInvalid)
		if l.Store != nil {
			if serr := l.Store.SaveSnapshot(ctx, stats, table); serr != nil {
				log.Warn("failed to persist dataset snapshot", zap.Error(serr))
			}
		}
		return table, stats, nil
	}

	metrics.RecordLoad(model.OriginSource, err)
	log.Error("dataset load failed", zap.String("source", l.Source), zap.Error(err))

	if l.Store == nil {
		return nil, stats, err
	}
	if serr := l.Store.SaveLoadError(ctx, loadID, l.Source, err); serr != nil {
		log.Warn("failed to record load error", zap.Error(serr))
	}
	if !l.Fallback {
		return nil, stats, err
	}

	snap, serr := l.Store.LatestSnapshot(ctx)
	if serr != nil {
		log.Warn("no snapshot to fall back to", zap.Error(serr))
		return nil, stats, err
	}

	metrics.RecordLoad(model.OriginSnapshot, nil)
	metrics.SetDataset(snap.Len(), 0)
	log.Warn("serving dataset from snapshot",
		zap.String("snapshot_load_id", snap.LoadID()),
		zap.Int("records", snap.Len()),
	)
	return snap, model.LoadStats{
		LoadID:       snap.LoadID(),
		Source:       snap.Source(),
		Origin:       model.OriginSnapshot,
		RecordsRead:  snap.Len(),
		RecordsValid: snap.Len(),
		LoadedAt:     snap.LoadedAt(),
	}, nil
}

func (l *Loader) attempt(ctx context.Context, loadID string) (*model.Table, model.LoadStats, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	body, err := Fetch(ctx, l.Client, l.Source)
	if err != nil {
		return nil, model.LoadStats{LoadID: loadID, Source: l.Source}, err
	}
	defer body.Close()

	table, stats, err := Parse(ctx, body, l.Source, loadID)
	if err != nil && ctx.Err() == context.DeadlineExceeded && !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		err = apperrors.Wrap(err, apperrors.ErrorTypeTimeout, "dataset load timed out")
	}
	return table, stats, err
}
