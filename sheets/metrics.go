package sheets

import (
	"sync"
	"time"
)

const rpmWindow = time.Minute

// Metrics tracks API usage for the /api/metrics endpoint. Counters are
// mutex-guarded; timestamps older than the RPM window are pruned as
// they are recorded.
type Metrics struct {
	mu             sync.Mutex
	googleRequests int
	cacheHits      int
	cacheMisses    int
	errors         int
	perSheet       map[string]int
	startedAt      time.Time

	requestTimes []time.Time
	googleTimes  []time.Time
}

type MetricsSnapshot struct {
	UptimeSeconds     int64          `json:"uptime_seconds"`
	StartedAt         time.Time      `json:"started_at"`
	GoogleAPIRequests int            `json:"google_api_requests"`
	CacheHits         int            `json:"cache_hits"`
	CacheMisses       int            `json:"cache_misses"`
	TotalRequests     int            `json:"total_requests"`
	CacheHitRate      float64        `json:"cache_hit_rate_percent"`
	Errors            int            `json:"errors"`
	ServerRPM         int            `json:"server_rpm"`
	GoogleRPM         int            `json:"google_rpm"`
	RequestsPerSheet  map[string]int `json:"requests_per_sheet"`
}

func NewMetrics() *Metrics {
	return &Metrics{perSheet: make(map[string]int), startedAt: time.Now()}
}

func (m *Metrics) RecordGoogleRequest(spreadsheetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.googleRequests++
	m.googleTimes = pruneAppend(m.googleTimes, time.Now())

	// Truncated ID keeps the snapshot readable.
	key := spreadsheetID
	if len(key) > 12 {
		key = key[:12] + "..."
	}
	m.perSheet[key]++
}

func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
	m.requestTimes = pruneAppend(m.requestTimes, time.Now())
}

func (m *Metrics) RecordCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
	m.requestTimes = pruneAppend(m.requestTimes, time.Now())
}

func (m *Metrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

func (m *Metrics) ServerRPM() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countInWindow(m.requestTimes, time.Now())
}

func (m *Metrics) GoogleRPM() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countInWindow(m.googleTimes, time.Now())
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	total := m.cacheHits + m.cacheMisses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(m.cacheHits) / float64(total) * 100
	}

	perSheet := make(map[string]int, len(m.perSheet))
	for k, v := range m.perSheet {
		perSheet[k] = v
	}

	return MetricsSnapshot{
		UptimeSeconds:     int64(now.Sub(m.startedAt).Seconds()),
		StartedAt:         m.startedAt,
		GoogleAPIRequests: m.googleRequests,
		CacheHits:         m.cacheHits,
		CacheMisses:       m.cacheMisses,
		TotalRequests:     total,
		CacheHitRate:      hitRate,
		Errors:            m.errors,
		ServerRPM:         countInWindow(m.requestTimes, now),
		GoogleRPM:         countInWindow(m.googleTimes, now),
		RequestsPerSheet:  perSheet,
	}
}

func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.googleRequests = 0
	m.cacheHits = 0
	m.cacheMisses = 0
	m.errors = 0
	m.perSheet = make(map[string]int)
	m.requestTimes = nil
	m.googleTimes = nil
	m.startedAt = time.Now()
}

func pruneAppend(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rpmWindow)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return append(kept, now)
}

func countInWindow(times []time.Time, now time.Time) int {
	cutoff := now.Add(-rpmWindow)
	count := 0
	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}
