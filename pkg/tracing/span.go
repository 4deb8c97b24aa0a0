// Package tracing provides lightweight in-process tracing. Spans form a
// parent-child tree hung off the request context and are emitted as
// structured slog records, so slow searches can be attributed to a stage
// without an external collector.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

var spanKey contextKey

// Span is one timed operation inside a trace.
type Span struct {
	Name    string
	TraceID string

	mu       sync.Mutex
	started  time.Time
	duration time.Duration
	children []*Span
	attrs    []slog.Attr
}

// StartSpan opens a root span under the given trace id and stores it in
// the returned context.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: traceID, started: time.Now()}
	return context.WithValue(ctx, spanKey, s), s
}

// StartChildSpan opens a span under the one carried by ctx. Without a
// parent in ctx the child becomes a root of its own with an empty trace id.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, started: time.Now()}
	if parent := SpanFromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey, child), child
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey).(*Span)
	return s
}

// End stamps the span's duration. Safe to call once per span.
func (s *Span) End() {
	s.mu.Lock()
	s.duration = time.Since(s.started)
	s.mu.Unlock()
}

// Duration returns the recorded duration, or the running time if the
// span has not ended yet.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duration > 0 {
		return s.duration
	}
	return time.Since(s.started)
}

// SetAttr attaches a key-value attribute to the span, preserving insertion
// order in the emitted record.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Log emits the span and its descendants as one slog record each, with
// the span's position in the tree spelled out as a path.
func (s *Span) Log() {
	s.emit(s.Name)
}

func (s *Span) emit(path string) {
	s.mu.Lock()
	attrs := make([]slog.Attr, 0, len(s.attrs)+3)
	attrs = append(attrs,
		slog.String("trace_id", s.TraceID),
		slog.String("span", path),
		slog.Int64("duration_ms", s.duration.Milliseconds()),
	)
	attrs = append(attrs, s.attrs...)
	children := s.children
	s.mu.Unlock()

	slog.LogAttrs(context.Background(), slog.LevelInfo, "span", attrs...)
	for _, child := range children {
		child.emit(path + " > " + child.Name)
	}
}
