package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"clinic-dashboard/internal/domain/entity"
	"clinic-dashboard/internal/domain/repository"
	"clinic-dashboard/internal/infrastructure/metrics"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const datasetLoadKey = "dataset"

// DatasetCache keeps the loaded appointments for the lifetime of the process.
//
// The snapshot is loaded on first access and reused until Invalidate is
// called, either explicitly or by the file watcher when the CSV changes.
// Snapshots are never modified after load, so readers share them freely.
type DatasetCache struct {
	repo    repository.AppointmentRepository
	log     *logrus.Logger
	metrics *metrics.DashboardMetrics

	mu         sync.RWMutex
	dataset    *entity.Dataset
	generation uint64 // guarded by mu, bumped by Invalidate
	version    atomic.Uint64
	loadOnce   singleflight.Group

	// Watcher lifecycle
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

func NewDatasetCache(repo repository.AppointmentRepository, log *logrus.Logger, m *metrics.DashboardMetrics) *DatasetCache {
	return &DatasetCache{
		repo:     repo,
		log:      log,
		metrics:  m,
		stopChan: make(chan struct{}),
	}
}

// Get returns the cached dataset, loading it when absent. Concurrent callers
// during a load share the same result.
func (c *DatasetCache) Get(ctx context.Context) (*entity.Dataset, error) {
	c.mu.RLock()
	ds := c.dataset
	generation := c.generation
	c.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	v, err, _ := c.loadOnce.Do(datasetLoadKey, func() (interface{}, error) {
		return c.load(ctx, generation)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.Dataset), nil
}

// load stores its snapshot only if no Invalidate happened since generation was
// read; otherwise the caller still gets the snapshot but the next Get reloads.
func (c *DatasetCache) load(ctx context.Context, generation uint64) (*entity.Dataset, error) {
	ds, err := c.repo.Load(ctx)
	if err != nil {
		c.metrics.ObserveLoad(0, 0, err)
		c.log.Errorf("Failed to load dataset from %s: %+v", c.repo.Source(), err)
		return nil, err
	}

	// Copy before stamping the version so the repository's value stays untouched.
	snapshot := *ds
	snapshot.Version = c.version.Add(1)
	snapshot.Fingerprint = Fingerprint(snapshot.Records)

	c.mu.Lock()
	stale := c.generation != generation
	if !stale {
		c.dataset = &snapshot
	}
	c.mu.Unlock()

	if stale {
		c.log.Infof("Dataset v%d invalidated while loading, not cached", snapshot.Version)
		return &snapshot, nil
	}

	c.metrics.ObserveLoad(len(snapshot.Records), snapshot.Dropped, nil)
	c.log.Infof("Dataset v%d cached: %d records, %d dropped", snapshot.Version, len(snapshot.Records), snapshot.Dropped)
	return &snapshot, nil
}

// Invalidate drops the cached snapshot; the next Get reloads from the source.
func (c *DatasetCache) Invalidate() {
	c.mu.Lock()
	c.dataset = nil
	c.generation++
	c.mu.Unlock()
	c.loadOnce.Forget(datasetLoadKey)
	c.log.Info("Dataset cache invalidated")
}

// Fingerprint hashes every field of every record in order. Null values hash
// differently from zero.
func Fingerprint(records []entity.Appointment) uint64 {
	h := xxhash.New()
	for _, r := range records {
		h.WriteString(r.Date.Format("2006-01-02"))
		for _, field := range []string{r.Unit, r.SpecialtyType, r.Doctor, r.ReturnVisit} {
			h.WriteString("\x1f")
			h.WriteString(field)
		}
		if r.Value.Valid {
			h.WriteString("\x1f" + r.Value.Decimal.String())
		} else {
			h.WriteString("\x1f\x00")
		}
		h.WriteString("\x1e")
	}
	return h.Sum64()
}

// Watch invalidates the cache whenever the file at path is written, created,
// renamed or removed. The parent directory is watched so editors that replace
// the file atomically are still noticed.
func (c *DatasetCache) Watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	c.watcher = watcher
	c.wg.Add(1)
	go c.watchLoop(absPath)

	c.log.Infof("Watching %s for changes", absPath)
	return nil
}

func (c *DatasetCache) watchLoop(path string) {
	defer c.wg.Done()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case <-c.stopChan:
			c.log.Debug("Dataset watcher stopping")
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path || event.Op&relevant == 0 {
				continue
			}
			c.log.Debugf("Source file event: %s", event)
			c.Invalidate()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warnf("Dataset watcher error: %+v", err)
		}
	}
}

// Stop shuts the watcher down. Safe to call multiple times.
func (c *DatasetCache) Stop() {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.stopChan)
		c.wg.Wait()
		if c.watcher != nil {
			c.watcher.Close()
		}
		c.log.Info("DatasetCache stopped")
	}
}
