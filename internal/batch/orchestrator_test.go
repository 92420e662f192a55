package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/aggregate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store/mocks"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/text"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/metrics"
)

type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

// Now returns the current time and then moves it forward by step.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// slowStore makes every chunk load take longer than the soft budget.
type slowStore struct {
	store.DocumentStore
	clock *fakeClock
	delay time.Duration
}

func (s slowStore) GetDocuments(ctx context.Context, refs []doc.Ref) ([]*doc.Item, error) {
	s.clock.Advance(s.delay)
	return s.DocumentStore.GetDocuments(ctx, refs)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.RunEvent
}

func (r *recordingSink) Track(e events.RunEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingSink) count(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type harness struct {
	docs    *store.MemoryStore
	state   *runstate.MemoryStore
	runs    *runstate.Manager
	clock   *fakeClock
	sink    *recordingSink
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	state := runstate.NewMemoryStore(0)
	return &harness{
		docs:    store.NewMemoryStore(),
		state:   state,
		runs:    runstate.NewManager(state, runstate.Options{}),
		clock:   newFakeClock(),
		sink:    &recordingSink{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
}

func (h *harness) orchestrator(docs store.DocumentStore, cfg Config, opts ...Option) *Orchestrator {
	norm := text.NewNormalizer(text.Options{Language: "english", IgnoreNumbers: true})
	engine := suggest.NewEngine(norm, segment.New(segment.Config{}), suggest.DefaultScoringConfig())
	opts = append([]Option{
		WithClock(h.clock.Now),
		WithEvents(h.sink),
		WithMetrics(h.metrics),
	}, opts...)
	return New(docs, h.runs, engine, aggregate.NewFormatter(engine, 10), cfg, opts...)
}

func (h *harness) put(t *testing.T, id int64, title, content string, categories ...int64) {
	t.Helper()
	item := &doc.Item{
		ID:         id,
		Kind:       doc.KindPost,
		TitleText:  title,
		Type:       "post",
		Status:     "publish",
		URL:        fmt.Sprintf("https://example.com/?p=%d", id),
		Content:    content,
		Categories: categories,
	}
	if err := h.docs.PutDocument(context.Background(), item); err != nil {
		t.Fatal(err)
	}
}

func testConfig() Config {
	return Config{
		Size:              1,
		SoftBudget:        15 * time.Second,
		HardBudget:        45 * time.Second,
		InboundMultiplier: 1,
		Filters: Filters{
			PostTypes: []string{"post", "page"},
			Statuses:  []string{"publish"},
		},
	}
}

var sourceRef = doc.Ref{ID: 1, Kind: doc.KindPost}

func seedOutbound(t *testing.T, h *harness) {
	h.put(t, 1, "Gear Guide", "best running shoes for winter hiking")
	h.put(t, 2, "Winter Hiking Boots", "")
	h.put(t, 3, "Summer Picnic Ideas", "")
	h.put(t, 4, "Garden Tools", "")
}

func TestOutboundRunInChunks(t *testing.T) {
	h := newHarness(t)
	seedOutbound(t, h)
	o := h.orchestrator(slowStore{DocumentStore: h.docs, clock: h.clock, delay: 20 * time.Second}, testConfig())
	ctx := context.Background()

	resp, err := o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "run-1"})
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	if resp.Completed || resp.ProcessedCount != 1 || resp.TotalCount != 3 || resp.Count != 1 {
		t.Fatalf("first chunk = %+v", resp)
	}
	if resp.Status != StatusNoSuggestions {
		t.Errorf("status after first chunk = %s", resp.Status)
	}

	for calls := 0; !resp.Completed; calls++ {
		if calls > 5 {
			t.Fatal("run did not complete")
		}
		resp, err = o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "run-1", Count: resp.Count})
		if err != nil {
			t.Fatalf("chunk: %v", err)
		}
	}
	if resp.ProcessedCount != 3 || resp.Status != StatusHasSuggestions {
		t.Errorf("final chunk = %+v", resp)
	}
	if want := "Processing Link Suggestions: 3 of 3 processed"; resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
	if n := h.sink.count(events.TypeRunCompleted); n != 1 {
		t.Errorf("run_completed events = %d, want 1", n)
	}
	if got := testutil.ToFloat64(h.metrics.BudgetBreaks.WithLabelValues("outbound", "time")); got != 2 {
		t.Errorf("time budget breaks = %v, want 2", got)
	}

	again, err := o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "run-1", Count: resp.Count})
	if err != nil || !again.Completed || again.ProcessedCount != 3 {
		t.Errorf("call after completion = %+v, %v", again, err)
	}

	view, err := o.GetFormattedSuggestions(ctx, FormatRequest{ProcessKey: "run-1", Mode: runstate.ModeOutbound, Document: sourceRef})
	if err != nil {
		t.Fatalf("GetFormattedSuggestions: %v", err)
	}
	if view.Outbound == nil || len(view.Outbound.Internal) != 1 {
		t.Fatalf("outbound view = %+v", view.Outbound)
	}
	if key := view.Outbound.Internal[0].Top().Target.Key(); key != "2" {
		t.Errorf("top target = %s, want 2", key)
	}

	_, err = o.GetFormattedSuggestions(ctx, FormatRequest{ProcessKey: "run-1", Mode: runstate.ModeOutbound, Document: sourceRef})
	if !errors.Is(err, apperrors.ErrRunNotFound) {
		t.Errorf("a consumed run should be gone, got %v", err)
	}
}

func TestOutboundSingleCallWithinBudget(t *testing.T) {
	h := newHarness(t)
	seedOutbound(t, h)
	cfg := testConfig()
	cfg.Size = 2
	o := h.orchestrator(h.docs, cfg)

	resp, err := o.ProcessOutboundChunk(context.Background(), OutboundRequest{Source: sourceRef, ProcessKey: "run-2"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Completed || resp.Count != 2 || resp.ProcessedCount != 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestOutboundRejectsStaleChunk(t *testing.T) {
	h := newHarness(t)
	seedOutbound(t, h)
	o := h.orchestrator(slowStore{DocumentStore: h.docs, clock: h.clock, delay: 20 * time.Second}, testConfig())
	ctx := context.Background()

	first, err := o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "k", Count: first.Count}); err != nil {
		t.Fatal(err)
	}
	_, err = o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "k", Count: first.Count})
	if !errors.Is(err, apperrors.ErrStaleChunk) {
		t.Errorf("replayed chunk error = %v, want ErrStaleChunk", err)
	}
}

func TestOutboundRejectsConcurrentCall(t *testing.T) {
	h := newHarness(t)
	seedOutbound(t, h)
	o := h.orchestrator(h.docs, testConfig())
	ctx := context.Background()

	unlock, err := h.runs.Run("busy").Lock(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()
	if _, err := o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "busy"}); !errors.Is(err, apperrors.ErrStaleChunk) {
		t.Errorf("error = %v, want ErrStaleChunk", err)
	}
}

func TestValidationErrorsLeaveNoState(t *testing.T) {
	tests := []struct {
		name string
		req  OutboundRequest
		want error
	}{
		{"missing process key", OutboundRequest{Source: sourceRef}, apperrors.ErrMissingProcessKey},
		{"missing source", OutboundRequest{ProcessKey: "k"}, apperrors.ErrInvalidInput},
		{"external kind", OutboundRequest{Source: doc.Ref{ID: 1, Kind: doc.KindExternalPost}, ProcessKey: "k"}, apperrors.ErrInvalidInput},
		{"unknown source", OutboundRequest{Source: doc.Ref{ID: 99, Kind: doc.KindPost}, ProcessKey: "k"}, apperrors.ErrDocumentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			seedOutbound(t, h)
			o := h.orchestrator(h.docs, testConfig())

			_, err := o.ProcessOutboundChunk(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if title, _ := apperrors.TitleAndText(err); title != apperrors.TitleDataError {
				t.Errorf("title = %q, want %q", title, apperrors.TitleDataError)
			}
			if h.state.Len() != 0 {
				t.Errorf("%d run entries written by a rejected call", h.state.Len())
			}
		})
	}
}

func TestOutboundStoreFailure(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	docs := mocks.NewMockDocumentStore(ctrl)

	source := &doc.Item{ID: 1, Kind: doc.KindPost, TitleText: "Gear Guide", Type: "post", Status: "publish"}
	docs.EXPECT().GetDocument(gomock.Any(), sourceRef).Return(source, nil)
	docs.EXPECT().GetContent(gomock.Any(), sourceRef).Return("best running shoes for winter hiking", nil)
	docs.EXPECT().QueryCandidateIDs(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	o := h.orchestrator(docs, testConfig())
	_, err := o.ProcessOutboundChunk(context.Background(), OutboundRequest{Source: sourceRef, ProcessKey: "k"})
	if err == nil {
		t.Fatal("expected the store failure to surface")
	}
	if _, ok, _ := h.runs.Run("k").State(context.Background()); ok {
		t.Error("no cursor should be committed after a failed chunk")
	}
}

func TestExternalChunk(t *testing.T) {
	h := newHarness(t)
	seedOutbound(t, h)
	ctx := context.Background()
	err := h.docs.PutExternalItems(ctx, []*doc.ExternalItem{
		{ID: 1, SiteURL: "https://other.example", ItemID: 40, TitleText: "Winter Hiking Guide", StemmedText: "winter hike guid", URL: "https://other.example/winter"},
		{ID: 2, SiteURL: "https://other.example", ItemID: 41, TitleText: "Winter Hiking Tips", StemmedText: "winter hike tip", URL: "https://other.example/linked"},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = h.docs.PutLinks(ctx, sourceRef, []store.Link{{URL: "https://other.example/linked", Anchor: "tips", External: true}})
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Size = 10
	cfg.ExternalLinking = true
	o := h.orchestrator(h.docs, cfg)

	resp, err := o.ProcessExternalChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "ext"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Completed || resp.TotalCount != 2 || resp.Status != StatusHasSuggestions {
		t.Fatalf("response = %+v", resp)
	}
	if want := "Processing External Site Link Suggestions: 2 of 2 processed"; resp.Message != want {
		t.Errorf("message = %q", resp.Message)
	}

	batches, err := o.externalRun("ext").Batches(ctx)
	if err != nil || len(batches) != 1 {
		t.Fatalf("external batches = %d, %v", len(batches), err)
	}
	for _, p := range batches[0] {
		for _, s := range p.Suggestions {
			if s.Target.URL == "https://other.example/linked" {
				t.Error("an already linked external item was suggested")
			}
		}
	}
}

func TestExternalChunkDisabled(t *testing.T) {
	h := newHarness(t)
	seedOutbound(t, h)
	o := h.orchestrator(h.docs, testConfig())

	resp, err := o.ProcessExternalChunk(context.Background(), OutboundRequest{Source: sourceRef, ProcessKey: "ext"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Completed || resp.Status != StatusNoSuggestions || resp.Message != messageComplete {
		t.Errorf("response = %+v", resp)
	}
}

var targetRef = doc.Ref{ID: 2, Kind: doc.KindPost}

func seedInbound(t *testing.T, h *harness) {
	h.put(t, 2, "Winter Hiking Boots", "Boots for cold trails.", 7)
	h.put(t, 10, "Trip Report", "We went winter hiking last year.", 7)
	h.put(t, 11, "Picnics", "A summer picnic by the lake.")
	h.put(t, 12, "Club News", "Winter hiking with friends.")
	h.put(t, 13, "Alps", "Hiking in the alps during winter hiking season.")
	if err := h.docs.PutLinks(context.Background(), doc.Ref{ID: 12, Kind: doc.KindPost}, []store.Link{{Target: targetRef, Anchor: "boots"}}); err != nil {
		t.Fatal(err)
	}
}

func TestInboundRun(t *testing.T) {
	h := newHarness(t)
	seedInbound(t, h)
	o := h.orchestrator(h.docs, testConfig())
	ctx := context.Background()

	resp, err := o.ProcessInboundChunk(ctx, InboundRequest{Target: targetRef, ProcessKey: "in"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalCount != 2 || resp.ProcessedCount != 1 || resp.LastProcessedID != 13 || resp.Completed {
		t.Fatalf("first chunk = %+v", resp)
	}
	if resp.RemainingCount != 1 || resp.PostsProcessed != 1 || resp.BatchSize != 1 {
		t.Errorf("first chunk counters = %+v", resp)
	}

	resp, err = o.ProcessInboundChunk(ctx, InboundRequest{
		Target:          targetRef,
		ProcessKey:      "in",
		LastProcessedID: resp.LastProcessedID,
		ProcessedCount:  resp.ProcessedCount,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Completed || resp.LastProcessedID != 10 || resp.ProcessedCount != 2 {
		t.Fatalf("second chunk = %+v", resp)
	}
	if resp.Status != StatusHasSuggestions {
		t.Errorf("status = %s", resp.Status)
	}

	_, err = o.ProcessInboundChunk(ctx, InboundRequest{Target: targetRef, ProcessKey: "in", LastProcessedID: 13, ProcessedCount: 1})
	if !errors.Is(err, apperrors.ErrStaleChunk) {
		t.Errorf("replayed chunk error = %v, want ErrStaleChunk", err)
	}

	view, err := o.GetFormattedSuggestions(ctx, FormatRequest{ProcessKey: "in", Mode: runstate.ModeInbound, Document: targetRef})
	if err != nil {
		t.Fatal(err)
	}
	if view.Inbound == nil || len(view.Inbound.Groups) == 0 {
		t.Fatalf("inbound view = %+v", view.Inbound)
	}
	for _, g := range view.Inbound.Groups {
		if g.Target.Ref.ID == 12 || g.Target.Ref.ID == 11 {
			t.Errorf("unexpected group for document %d", g.Target.Ref.ID)
		}
	}
}

func TestInboundBudgetExceededBeforeFirstDocument(t *testing.T) {
	h := newHarness(t)
	h.put(t, 1000, "Winter Hiking Boots", "")
	for id := int64(1); id <= 500; id++ {
		h.put(t, id, fmt.Sprintf("Post %d", id), "Notes from a winter hiking trip.")
	}
	h.clock.step = 20 * time.Second
	cfg := testConfig()
	cfg.Size = 300
	o := h.orchestrator(h.docs, cfg)

	resp, err := o.ProcessInboundChunk(context.Background(), InboundRequest{Target: doc.Ref{ID: 1000, Kind: doc.KindPost}, ProcessKey: "slow"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Completed {
		t.Error("completed = true, want false")
	}
	if resp.ProcessedCount != 0 || resp.PostsProcessed != 0 {
		t.Errorf("processed = %d/%d, want 0", resp.ProcessedCount, resp.PostsProcessed)
	}
	if resp.LastProcessedID != 0 {
		t.Errorf("cursor = %d, want the initial cursor 0", resp.LastProcessedID)
	}
	if resp.TotalCount != 500 {
		t.Errorf("total = %d, want 500", resp.TotalCount)
	}
	if got := testutil.ToFloat64(h.metrics.BudgetBreaks.WithLabelValues("inbound", "time")); got != 1 {
		t.Errorf("time budget breaks = %v, want 1", got)
	}
}

func TestInboundMemoryBreakPoint(t *testing.T) {
	h := newHarness(t)
	seedInbound(t, h)
	cfg := testConfig()
	cfg.MemoryBreakPoint = 1 << 20
	o := h.orchestrator(h.docs, cfg, WithMemoryUsage(func() uint64 { return 1 << 30 }))

	resp, err := o.ProcessInboundChunk(context.Background(), InboundRequest{Target: targetRef, ProcessKey: "mem", LastProcessedID: 99, ProcessedCount: 0})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Completed || resp.PostsProcessed != 0 || resp.LastProcessedID != 99 {
		t.Errorf("response = %+v", resp)
	}
	if got := testutil.ToFloat64(h.metrics.BudgetBreaks.WithLabelValues("inbound", "memory")); got != 1 {
		t.Errorf("memory budget breaks = %v, want 1", got)
	}
}

func TestInboundLiteralKeywords(t *testing.T) {
	h := newHarness(t)
	seedInbound(t, h)
	cfg := testConfig()
	cfg.InboundMultiplier = 10
	o := h.orchestrator(h.docs, cfg)

	resp, err := o.ProcessInboundChunk(context.Background(), InboundRequest{
		Target:     targetRef,
		ProcessKey: "lit",
		Keywords:   " summer picnic ;; ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Keywords != "summer picnic" {
		t.Errorf("keywords = %q", resp.Keywords)
	}
	if !resp.Completed || resp.TotalCount != 1 || resp.LastProcessedID != 11 {
		t.Errorf("response = %+v", resp)
	}
}

func TestClearRunCache(t *testing.T) {
	h := newHarness(t)
	seedOutbound(t, h)
	o := h.orchestrator(slowStore{DocumentStore: h.docs, clock: h.clock, delay: 20 * time.Second}, testConfig())
	ctx := context.Background()

	if _, err := o.ProcessOutboundChunk(ctx, OutboundRequest{Source: sourceRef, ProcessKey: "clear"}); err != nil {
		t.Fatal(err)
	}
	if h.state.Len() == 0 {
		t.Fatal("expected run entries")
	}
	if err := o.ClearRunCache(ctx, "clear", sourceRef); err != nil {
		t.Fatal(err)
	}
	if h.state.Len() != 0 {
		t.Errorf("%d entries left after clearing", h.state.Len())
	}
	if h.sink.count(events.TypeRunCleared) != 1 {
		t.Error("run_cleared event not tracked")
	}
	if err := o.ClearRunCache(ctx, " ", sourceRef); !errors.Is(err, apperrors.ErrMissingProcessKey) {
		t.Errorf("error = %v, want ErrMissingProcessKey", err)
	}
}

func TestIdsAfter(t *testing.T) {
	ids := []int64{40, 30, 20, 10}
	tests := []struct {
		cursor int64
		want   int
	}{
		{0, 4},
		{40, 3},
		{25, 2},
		{10, 0},
		{5, 0},
	}
	for _, tt := range tests {
		if got := idsAfter(ids, tt.cursor); len(got) != tt.want {
			t.Errorf("idsAfter(%d) = %v, want %d ids", tt.cursor, got, tt.want)
		}
	}
}

func TestSplitKeywords(t *testing.T) {
	got := SplitKeywords("winter boots; ; hiking ;")
	if len(got) != 2 || got[0] != "winter boots" || got[1] != "hiking" {
		t.Errorf("SplitKeywords = %q", got)
	}
}
