package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	requestDuration map[string]time.Duration
	errorCount      map[string]int64
	assignmentCount map[string]int64
	runCount        int64
}

// MetricsSnapshot is a point-in-time copy served by the metrics endpoint.
type MetricsSnapshot struct {
	Requests          map[string]int64 `json:"requests"`
	RequestAvgMillis  map[string]int64 `json:"request_avg_ms"`
	Errors            map[string]int64 `json:"errors"`
	AssignmentsByTier map[string]int64 `json:"assignments_by_tier"`
	AssignmentRuns    int64            `json:"assignment_runs"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string]time.Duration),
		errorCount:      make(map[string]int64),
		assignmentCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestDuration[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordAssignmentRun counts one bulk run and the tier each of its tasks landed in.
func (m *Metrics) RecordAssignmentRun(tiers []string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCount++
	for _, tier := range tiers {
		m.assignmentCount[tier]++
	}
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Requests:          map[string]int64{},
		RequestAvgMillis:  map[string]int64{},
		Errors:            map[string]int64{},
		AssignmentsByTier: map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.requestCount {
		snap.Requests[k] = v
		snap.RequestAvgMillis[k] = (m.requestDuration[k] / time.Duration(v)).Milliseconds()
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.assignmentCount {
		snap.AssignmentsByTier[k] = v
	}
	snap.AssignmentRuns = m.runCount
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
