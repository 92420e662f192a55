// Package tracing records timed spans for API requests and the suggestion
// chunks they trigger. A request opens a root span; every chunk processed on
// its behalf hangs a child span off it, and the finished tree is written to
// slog in one pass.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

// Span is one timed operation. Attributes keep their insertion order so the
// log lines read the same way the code set them.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []slog.Attr
	children []*Span
	err      error
}

// StartSpan opens a root span for traceID.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, spanKey{}, span), span
}

// StartChildSpan opens a span under the one carried by ctx. Without a parent
// the span is a detached root with an empty trace id; it still times the
// operation but is never logged.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, Start: time.Now()}
	if parent := SpanFromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, child), child
}

// SpanFromContext returns the innermost span in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// End fixes the span's duration. Later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Duration == 0 {
		s.Duration = time.Since(s.Start)
	}
}

// SetAttr records a key/value pair, replacing an earlier value for key.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = slog.AnyValue(value)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, value))
}

// Fail marks the span as failed. A nil err is ignored.
func (s *Span) Fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Attr returns the value recorded for key.
func (s *Span) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.Any(), true
		}
	}
	return nil, false
}

// Children returns a snapshot of the spans opened under s.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes s and its descendants to the default logger, one record per
// span. Failed spans log at warn level.
func (s *Span) Log() {
	s.log(slog.Default(), "")
}

func (s *Span) log(logger *slog.Logger, parent string) {
	s.mu.Lock()
	args := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
	}
	if parent != "" {
		args = append(args, "parent", parent)
	}
	for _, a := range s.attrs {
		args = append(args, a)
	}
	level := slog.LevelInfo
	if s.err != nil {
		level = slog.LevelWarn
		args = append(args, "error", s.err.Error())
	}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	logger.Log(context.Background(), level, "span", args...)
	for _, c := range children {
		c.log(logger, s.Name)
	}
}
