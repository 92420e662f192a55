// Package health aggregates the state of the backends a process depends on
// (document store, run state, postgres) into one report for liveness and
// readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/resilience"
)

// Status of one component or of the whole process.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

func (s Status) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

// Check probes one dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the outcome of one Check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the worst component status plus every component's result.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Uptime     string                     `json:"uptime"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker runs registered checks concurrently, each under its own timeout.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
	started time.Time
}

// NewChecker returns a Checker whose checks time out after 2s.
func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		timeout: 2 * time.Second,
		started: time.Now(),
	}
}

// SetTimeout changes how long a single check may run before it is reported
// down.
func (c *Checker) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Names lists the registered checks in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for n := range c.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and reports the worst status. A check that
// overruns its timeout is reported down.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	timeout := c.timeout
	checks := make(map[string]Check, len(c.checks))
	for n, ch := range c.checks {
		checks[n] = ch
	}
	c.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]ComponentHealth, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.probe(ctx, timeout, name, check)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	report := Report{
		Status:     StatusUp,
		Components: results,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, r := range results {
		if r.Status.rank() > report.Status.rank() {
			report.Status = r.Status
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, timeout time.Duration, name string, check Check) ComponentHealth {
	start := time.Now()
	var res ComponentHealth
	err := resilience.WithTimeout(ctx, timeout, name, func(ctx context.Context) error {
		res = check(ctx)
		return nil
	})
	if err != nil {
		res = ComponentHealth{Status: StatusDown, Message: err.Error()}
	}
	if res.Status == "" {
		res.Status = StatusUp
	}
	res.Latency = time.Since(start).Round(time.Millisecond).String()
	return res
}

// LiveHandler answers as long as the process can serve HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler reports 503 while any component is down. A degraded
// component, such as a half-open store circuit, still counts as ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
