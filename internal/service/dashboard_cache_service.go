package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"clinic-dashboard/internal/domain/entity"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// RedisDashboardKeyPrefix namespaces cached dashboard results.
	RedisDashboardKeyPrefix = "dashboard:"

	// Timeout for individual Redis operations
	redisCacheTimeout = 2 * time.Second
)

// CachedDashboard is the stored outcome of one pipeline run.
type CachedDashboard struct {
	Empty     bool              `json:"empty"`
	Dashboard *entity.Dashboard `json:"dashboard,omitempty"`
}

type DashboardCacheService interface {
	Get(ctx context.Context, fingerprint uint64, criteria entity.FilterCriteria) (*CachedDashboard, bool)
	Set(ctx context.Context, fingerprint uint64, criteria entity.FilterCriteria, value *CachedDashboard)
}

// dashboardCacheService stores dashboard results in Redis keyed by the dataset
// content fingerprint and a criteria hash. Changed data hashes to new keys in
// every process sharing the Redis, so stale entries are never read and simply expire.
// Redis failures are logged and treated as misses; the cache is never required.
type dashboardCacheService struct {
	redisClient *redis.Client
	ttl         time.Duration
	log         *logrus.Logger
}

// NewDashboardCacheService returns a no-op cache when redisClient is nil.
func NewDashboardCacheService(redisClient *redis.Client, ttl time.Duration, log *logrus.Logger) DashboardCacheService {
	return &dashboardCacheService{
		redisClient: redisClient,
		ttl:         ttl,
		log:         log,
	}
}

func (s *dashboardCacheService) Get(ctx context.Context, fingerprint uint64, criteria entity.FilterCriteria) (*CachedDashboard, bool) {
	if s.redisClient == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, redisCacheTimeout)
	defer cancel()

	key := DashboardCacheKey(fingerprint, criteria)
	raw, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warnf("Failed to read dashboard cache %s: %+v", key, err)
		}
		return nil, false
	}

	var cached CachedDashboard
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warnf("Discarding corrupt dashboard cache entry %s: %+v", key, err)
		return nil, false
	}
	return &cached, true
}

func (s *dashboardCacheService) Set(ctx context.Context, fingerprint uint64, criteria entity.FilterCriteria, value *CachedDashboard) {
	if s.redisClient == nil || value == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, redisCacheTimeout)
	defer cancel()

	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Warnf("Failed to encode dashboard cache entry: %+v", err)
		return
	}

	key := DashboardCacheKey(fingerprint, criteria)
	if err := s.redisClient.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.log.Warnf("Failed to write dashboard cache %s: %+v", key, err)
		return
	}
	s.log.Debugf("Cached dashboard %s (TTL=%v)", key, s.ttl)
}

// DashboardCacheKey fingerprints criteria independently of set iteration order.
func DashboardCacheKey(fingerprint uint64, criteria entity.FilterCriteria) string {
	h := xxhash.New()
	h.WriteString(criteria.DateStart.Format("2006-01-02"))
	h.WriteString("|")
	h.WriteString(criteria.DateEnd.Format("2006-01-02"))
	writeSet(h, "units", criteria.Units)
	writeSet(h, "specialties", criteria.Specialties)

	return fmt.Sprintf("%s%016x:%016x", RedisDashboardKeyPrefix, fingerprint, h.Sum64())
}

func writeSet(h *xxhash.Digest, name string, set map[string]struct{}) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h.WriteString("|" + name + ":")
	for _, k := range keys {
		h.WriteString(k)
		h.WriteString("\x00")
	}
}
