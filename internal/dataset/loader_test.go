package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
)

type fakeStore struct {
	mu       sync.Mutex
	saved    []model.LoadStats
	failures []string
	snapshot *model.Table
}

func (s *fakeStore) SaveSnapshot(_ context.Context, stats model.LoadStats, _ *model.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, stats)
	return nil
}

func (s *fakeStore) SaveLoadError(_ context.Context, loadID, _ string, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, loadID)
	return nil
}

func (s *fakeStore) LatestSnapshot(context.Context) (*model.Table, error) {
	if s.snapshot == nil {
		return nil, apperrors.New(apperrors.ErrorTypeNotFound, "no snapshot")
	}
	return s.snapshot, nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaigns.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadPersistsSnapshot(t *testing.T) {
	store := &fakeStore{}
	l := &Loader{Source: writeCSV(t, sampleCSV), Retry: fastRetry(1), Store: store}

	table, stats, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, model.OriginSource, stats.Origin)
	assert.NotEmpty(t, stats.LoadID)
	assert.Equal(t, stats.LoadID, table.LoadID())
	require.Len(t, store.saved, 1)
	assert.Equal(t, stats.LoadID, store.saved[0].LoadID)
}

func TestLoader_UniqueLoadIDs(t *testing.T) {
	l := &Loader{Source: writeCSV(t, sampleCSV), Retry: fastRetry(1)}

	a, _, err := l.Load(context.Background())
	require.NoError(t, err)
	b, _, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.LoadID(), b.LoadID())
}

func TestLoader_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	l := &Loader{Source: srv.URL, Client: srv.Client(), Retry: fastRetry(3), Timeout: time.Second}
	table, _, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.EqualValues(t, 3, hits.Load())
}

func TestLoader_FailureWithoutFallback(t *testing.T) {
	store := &fakeStore{snapshot: model.NewTable("old", "old-load", time.Now(), model.RequiredColumns, nil)}
	l := &Loader{Source: filepath.Join(t.TempDir(), "missing.csv"), Retry: fastRetry(3), Store: store}

	table, _, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Len(t, store.failures, 1)
}

func TestLoader_FallsBackToSnapshot(t *testing.T) {
	snap := model.NewTable("old.csv", "old-load", time.Unix(100, 0).UTC(), model.RequiredColumns, []model.Record{
		{CustomerID: "9", Revenue: 1, Conversions: 1, Status: "OK", Type: "CLICK", Category: "A"},
	})
	store := &fakeStore{snapshot: snap}
	l := &Loader{Source: filepath.Join(t.TempDir(), "missing.csv"), Retry: fastRetry(1), Store: store, Fallback: true}

	table, stats, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, table)
	assert.Equal(t, model.OriginSnapshot, stats.Origin)
	assert.Equal(t, "old-load", stats.LoadID)
	assert.Equal(t, 1, stats.RecordsValid)
}

func TestLoader_FallbackWithoutSnapshot(t *testing.T) {
	l := &Loader{Source: filepath.Join(t.TempDir(), "missing.csv"), Retry: fastRetry(1), Store: &fakeStore{}, Fallback: true}

	_, _, err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestHolder_Swap(t *testing.T) {
	first := model.NewTable("a", "1", time.Now(), nil, nil)
	second := model.NewTable("b", "2", time.Now(), nil, nil)

	h := NewHolder(first)
	assert.Same(t, first, h.Table())

	prev := h.Swap(second)
	assert.Same(t, first, prev)
	assert.Same(t, second, h.Table())
}

func TestLoader_WatchReloads(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	l := &Loader{Source: path, Retry: fastRetry(1)}

	initial, _, err := l.Load(context.Background())
	require.NoError(t, err)
	h := NewHolder(initial)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Watch(ctx, h) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)

	// A broken file keeps the previous table.
	require.NoError(t, os.WriteFile(path, []byte("nonsense\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Same(t, initial, h.Table())

	updated := sampleCSV + "3,30,3,OK,CLICK,C,east\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		return h.Table().Len() == 3
	}, 2*time.Second, 20*time.Millisecond)
	assert.NotEqual(t, initial.LoadID(), h.Table().LoadID())
}

func TestLoader_WatchFollowsAtomicSaves(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	l := &Loader{Source: path, Retry: fastRetry(1)}

	initial, _, err := l.Load(context.Background())
	require.NoError(t, err)
	h := NewHolder(initial)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Watch(ctx, h) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	time.Sleep(50 * time.Millisecond)

	// Write a sibling file and rename it over the dataset, as editors do.
	replaced := sampleCSV + "3,30,3,OK,CLICK,C,east\n"
	tmp := filepath.Join(filepath.Dir(path), ".campaigns.csv.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(replaced), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		return h.Table().Len() == 3
	}, 2*time.Second, 20*time.Millisecond)

	// The replaced file is still watched.
	require.NoError(t, os.WriteFile(path, []byte(replaced+"4,40,4,OK,CLICK,D,west\n"), 0o644))
	require.Eventually(t, func() bool {
		return h.Table().Len() == 4
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLoader_WatchMissingFile(t *testing.T) {
	l := &Loader{Source: filepath.Join(t.TempDir(), "absent.csv")}
	err := l.Watch(context.Background(), NewHolder(nil))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestLoader_WatchRejectsRemoteSource(t *testing.T) {
	l := &Loader{Source: "http://example.com/data.csv"}
	err := l.Watch(context.Background(), NewHolder(nil))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
}
