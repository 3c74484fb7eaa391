package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clinic-dashboard/internal/domain/entity"
	"clinic-dashboard/internal/domain/repository"
	"clinic-dashboard/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	loads atomic.Int32
	err   error
	delay time.Duration
}

func (f *fakeRepository) Load(ctx context.Context) (*entity.Dataset, error) {
	f.loads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, &repository.DataSourceError{Source: f.Source(), Err: f.err}
	}
	return &entity.Dataset{
		Source: f.Source(),
		Records: []entity.Appointment{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Unit: "A", SpecialtyType: "X"},
		},
		Dropped: 1,
	}, nil
}

func (f *fakeRepository) Source() string {
	return "fake.csv"
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestCache(repo repository.AppointmentRepository) *DatasetCache {
	return NewDatasetCache(repo, testLogger(), metrics.NewDashboardMetrics(prometheus.NewRegistry()))
}

func TestDatasetCache_LoadsOnce(t *testing.T) {
	repo := &fakeRepository{}
	cache := newTestCache(repo)
	defer cache.Stop()

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), repo.loads.Load())
	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, 1, first.Dropped)
}

func TestDatasetCache_ConcurrentGetSharesLoad(t *testing.T) {
	repo := &fakeRepository{delay: 50 * time.Millisecond}
	cache := newTestCache(repo)
	defer cache.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), repo.loads.Load())
}

func TestDatasetCache_InvalidateBumpsVersion(t *testing.T) {
	repo := &fakeRepository{}
	cache := newTestCache(repo)
	defer cache.Stop()

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	cache.Invalidate()

	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), repo.loads.Load())
	assert.Greater(t, second.Version, first.Version)
}

// gatedRepository blocks each Load until gate is closed.
type gatedRepository struct {
	fakeRepository
	gate chan struct{}
}

func (g *gatedRepository) Load(ctx context.Context) (*entity.Dataset, error) {
	ds, err := g.fakeRepository.Load(ctx)
	<-g.gate
	return ds, err
}

func TestDatasetCache_InvalidateDuringLoadIsKept(t *testing.T) {
	repo := &gatedRepository{gate: make(chan struct{})}
	cache := newTestCache(repo)
	defer cache.Stop()

	done := make(chan *entity.Dataset)
	go func() {
		ds, err := cache.Get(context.Background())
		assert.NoError(t, err)
		done <- ds
	}()

	require.Eventually(t, func() bool { return repo.loads.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cache.Invalidate()
	close(repo.gate)

	inFlight := <-done
	require.NotNil(t, inFlight)

	cache.mu.RLock()
	assert.Nil(t, cache.dataset)
	cache.mu.RUnlock()

	fresh, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.loads.Load())
	assert.Greater(t, fresh.Version, inFlight.Version)

	again, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, fresh, again)
}

func TestFingerprint(t *testing.T) {
	base := func() []entity.Appointment {
		return []entity.Appointment{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Unit: "A", SpecialtyType: "X", Doctor: "Dr. One", Value: decimal.NewNullDecimal(decimal.NewFromInt(100)), ReturnVisit: "0"},
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Unit: "B", SpecialtyType: "Y", Doctor: "Dr. Two", ReturnVisit: "1"},
		}
	}

	assert.Equal(t, Fingerprint(base()), Fingerprint(base()))

	changedValue := base()
	changedValue[0].Value = decimal.NewNullDecimal(decimal.NewFromInt(999))
	assert.NotEqual(t, Fingerprint(base()), Fingerprint(changedValue))

	zeroValue := base()
	zeroValue[1].Value = decimal.NewNullDecimal(decimal.Zero)
	assert.NotEqual(t, Fingerprint(base()), Fingerprint(zeroValue))

	shifted := base()
	shifted[0].Unit, shifted[0].SpecialtyType = "AX", ""
	assert.NotEqual(t, Fingerprint(base()), Fingerprint(shifted))

	reordered := base()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	assert.NotEqual(t, Fingerprint(base()), Fingerprint(reordered))
}

func TestDatasetCache_StampsFingerprint(t *testing.T) {
	cache := newTestCache(&fakeRepository{})
	defer cache.Stop()

	ds, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(ds.Records), ds.Fingerprint)

	cache.Invalidate()
	reloaded, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, ds.Version, reloaded.Version)
	assert.Equal(t, ds.Fingerprint, reloaded.Fingerprint)
}

func TestDatasetCache_LoadErrorIsNotCached(t *testing.T) {
	repo := &fakeRepository{err: errors.New("no such file")}
	cache := newTestCache(repo)
	defer cache.Stop()

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, repository.ErrDataSource)

	repo.err = nil
	ds, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Records, 1)
	assert.Equal(t, int32(2), repo.loads.Load())
}

func TestDatasetCache_WatchInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consultas.csv")
	require.NoError(t, os.WriteFile(path, []byte("dataconsulta\n"), 0o644))

	repo := &fakeRepository{}
	cache := newTestCache(repo)
	defer cache.Stop()

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, cache.Watch(path))

	// Writes to other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	cache.mu.RLock()
	assert.NotNil(t, cache.dataset)
	cache.mu.RUnlock()

	require.NoError(t, os.WriteFile(path, []byte("dataconsulta\n2024-01-01\n"), 0o644))

	require.Eventually(t, func() bool {
		cache.mu.RLock()
		defer cache.mu.RUnlock()
		return cache.dataset == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDatasetCache_WatchMissingDirectory(t *testing.T) {
	cache := newTestCache(&fakeRepository{})
	defer cache.Stop()

	err := cache.Watch(filepath.Join(t.TempDir(), "missing", "consultas.csv"))
	assert.Error(t, err)
}

func TestDatasetCache_StopIsIdempotent(t *testing.T) {
	cache := newTestCache(&fakeRepository{})
	require.NoError(t, cache.Watch(filepath.Join(t.TempDir(), "consultas.csv")))

	assert.NotPanics(t, func() {
		cache.Stop()
		cache.Stop()
	})
}
