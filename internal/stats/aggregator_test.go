package stats

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func feed(t *testing.T, agg *Aggregator, event interface{}) {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := agg.Handler()(context.Background(), nil, data); err != nil {
		t.Fatalf("handler: %v", err)
	}
}

func TestAggregatorSearchTotals(t *testing.T) {
	agg := NewAggregator()

	feed(t, agg, SearchEvent{Type: EventSearch, Query: "pony", TotalHits: 2, LatencyMs: 4, CacheHit: false, Timestamp: time.Now()})
	feed(t, agg, SearchEvent{Type: EventSearch, Query: "pony", TotalHits: 2, LatencyMs: 1, CacheHit: true, Timestamp: time.Now()})
	feed(t, agg, SearchEvent{Type: EventSearch, Query: "unicorn", TotalHits: 0, LatencyMs: 3, Timestamp: time.Now()})
	feed(t, agg, SearchEvent{Type: EventFallback, Query: "pony"})

	stats := agg.Stats()
	if stats.TotalSearches != 3 {
		t.Errorf("TotalSearches = %d, want 3", stats.TotalSearches)
	}
	if stats.TotalFallbacks != 1 {
		t.Errorf("TotalFallbacks = %d, want 1", stats.TotalFallbacks)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("cache counters = %d/%d, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if stats.ZeroResultCount != 1 {
		t.Errorf("ZeroResultCount = %d, want 1", stats.ZeroResultCount)
	}
	if len(stats.TopQueries) == 0 || stats.TopQueries[0].Query != "pony" || stats.TopQueries[0].Count != 2 {
		t.Errorf("TopQueries = %v, want pony first with count 2", stats.TopQueries)
	}
	if len(stats.ZeroResultQueries) != 1 || stats.ZeroResultQueries[0].Query != "unicorn" {
		t.Errorf("ZeroResultQueries = %v, want [unicorn]", stats.ZeroResultQueries)
	}
	if stats.AvgLatencyMs == 0 {
		t.Error("AvgLatencyMs should be populated")
	}
}

func TestAggregatorIndexTotals(t *testing.T) {
	agg := NewAggregator()
	feed(t, agg, IndexEvent{Type: EventIndex, DocID: "1", TermCount: 4})
	feed(t, agg, IndexEvent{Type: EventIndex, DocID: "2", TermCount: 2})
	feed(t, agg, IndexEvent{Type: EventRemove, DocID: "1"})

	stats := agg.Stats()
	if stats.TotalDocsIndexed != 2 {
		t.Errorf("TotalDocsIndexed = %d, want 2", stats.TotalDocsIndexed)
	}
	if stats.TotalDocsRemoved != 1 {
		t.Errorf("TotalDocsRemoved = %d, want 1", stats.TotalDocsRemoved)
	}
}

func TestAggregatorIgnoresGarbage(t *testing.T) {
	agg := NewAggregator()
	if err := agg.Handler()(context.Background(), nil, []byte("not json")); err != nil {
		t.Errorf("garbage event must be skipped, not retried: %v", err)
	}
	if err := agg.Handler()(context.Background(), nil, []byte(`{"type":"mystery"}`)); err != nil {
		t.Errorf("unknown event type must be skipped: %v", err)
	}
	if stats := agg.Stats(); stats.TotalSearches != 0 {
		t.Errorf("garbage must not count: %+v", stats)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(sorted, 50); got != 6 {
		t.Errorf("p50 = %d, want 6", got)
	}
	if got := percentile(sorted, 99); got != 10 {
		t.Errorf("p99 = %d, want 10", got)
	}
	if got := percentile(nil, 95); got != 0 {
		t.Errorf("empty percentile = %d, want 0", got)
	}
}

func TestLatencySamplesBounded(t *testing.T) {
	agg := NewAggregator()
	agg.latWindow = 4

	for i := 1; i <= 6; i++ {
		feed(t, agg, SearchEvent{Type: EventSearch, Query: "pony", TotalHits: 1, LatencyMs: int64(i * 10)})
	}

	if len(agg.latencies) != 4 {
		t.Fatalf("kept %d latency samples, want window of 4", len(agg.latencies))
	}
	// The two oldest samples (10, 20) were overwritten by 50 and 60.
	var sum int64
	for _, l := range agg.latencies {
		sum += l
	}
	if sum != 30+40+50+60 {
		t.Errorf("window sum = %d, want the latest four samples", sum)
	}
	if got := agg.Stats().P99LatencyMs; got != 60 {
		t.Errorf("P99LatencyMs = %d, want 60", got)
	}
}
