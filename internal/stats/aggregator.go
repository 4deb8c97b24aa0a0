package stats

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quotelab/quotesearch/pkg/kafka"
)

// AggregatedStats is the rolled-up view served on the stats endpoint.
type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	TotalFallbacks    int64        `json:"total_fallbacks"`
	TotalDocsIndexed  int64        `json:"total_docs_indexed"`
	TotalDocsRemoved  int64        `json:"total_docs_removed"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

// QueryCount pairs a query with how often it was asked.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// defaultLatencyWindow bounds the latency samples kept for percentile
// calculation; older samples are overwritten, so memory stays constant
// over the process lifetime.
const defaultLatencyWindow = 10000

// Aggregator consumes analytics events and maintains running totals,
// latency percentiles over a sliding sample window, and top-query
// tables.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	totalFallbacks    atomic.Int64
	totalDocsIndexed  atomic.Int64
	totalDocsRemoved  atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64 // ring of the latest latWindow samples
	latNext           int
	latWindow         int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		latWindow:         defaultLatencyWindow,
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "stats-aggregator"),
	}
}

// Handler returns a kafka.MessageHandler feeding this aggregator.
// Undecodable events are logged and skipped, never retried.
func (a *Aggregator) Handler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		probe, err := kafka.DecodeJSON[struct {
			Type EventType `json:"type"`
		}](value)
		if err != nil {
			a.logger.Error("failed to decode stats event", "error", err)
			return nil
		}
		switch probe.Type {
		case EventSearch, EventFallback:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				a.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			a.RecordSearch(event)
		case EventIndex, EventRemove:
			event, err := kafka.DecodeJSON[IndexEvent](value)
			if err != nil {
				a.logger.Error("failed to decode index event", "error", err)
				return nil
			}
			a.RecordIndex(event)
		default:
			a.logger.Warn("unknown stats event type", "type", probe.Type)
		}
		return nil
	}
}

// RecordSearch folds one search event into the running totals.
func (a *Aggregator) RecordSearch(event SearchEvent) {
	if event.Type == EventFallback {
		a.totalFallbacks.Add(1)
		return
	}
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) < a.latWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latNext] = event.LatencyMs
	}
	a.latNext = (a.latNext + 1) % a.latWindow
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

// RecordIndex folds one index mutation event into the running totals.
func (a *Aggregator) RecordIndex(event IndexEvent) {
	if event.Type == EventRemove {
		a.totalDocsRemoved.Add(1)
		return
	}
	a.totalDocsIndexed.Add(1)
}

// Stats returns a consistent snapshot of the aggregated statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches.Load(),
		TotalFallbacks:   a.totalFallbacks.Load(),
		TotalDocsIndexed: a.totalDocsIndexed.Load(),
		TotalDocsRemoved: a.totalDocsRemoved.Load(),
		CacheHits:        a.cacheHits.Load(),
		CacheMisses:      a.cacheMisses.Load(),
		ZeroResultCount:  a.zeroResults.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
