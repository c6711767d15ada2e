package generate

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	model      string
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates the completion calls inside the window.
type StatsSnapshot struct {
	Count    int            `json:"count"`
	Failures int            `json:"failures"`
	ByModel  map[string]int `json:"by_model,omitempty"`
	MinMs    int64          `json:"min_ms"`
	MaxMs    int64          `json:"max_ms"`
	AvgMs    float64        `json:"avg_ms"`
	P50Ms    float64        `json:"p50_ms"`
	P95Ms    float64        `json:"p95_ms"`
	P99Ms    float64        `json:"p99_ms"`
}

// CompletionStats keeps a rolling window of completion latencies. Latency
// percentiles cover successful calls only.
type CompletionStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewCompletionStats(maxAge time.Duration) *CompletionStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &CompletionStats{samples: make([]sample, 0, 256), maxAge: maxAge}
}

// Record adds a successful call.
func (s *CompletionStats) Record(model string, durationMs int64) {
	s.add(sample{model: model, durationMs: durationMs})
}

// RecordFailure adds a failed call.
func (s *CompletionStats) RecordFailure(model string, durationMs int64) {
	s.add(sample{model: model, durationMs: durationMs, failed: true})
}

func (s *CompletionStats) add(sm sample) {
	if sm.durationMs < 0 {
		sm.durationMs = 0
	}
	sm.at = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(sm.at)
	s.samples = append(s.samples, sm)
}

func (s *CompletionStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)

	var snap StatsSnapshot
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		if sm.failed {
			snap.Failures++
			continue
		}
		if snap.ByModel == nil {
			snap.ByModel = make(map[string]int)
		}
		snap.ByModel[sm.model]++
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	if len(values) == 0 {
		return snap
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *CompletionStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	n := 0
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			s.samples[n] = sm
			n++
		}
	}
	s.samples = s.samples[:n]
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
