package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func up(context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} }

func TestRunReportsWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{name: "no checks", want: StatusUp},
		{name: "all up", checks: map[string]Check{"postgres": up, "redis": up}, want: StatusUp},
		{
			name: "degraded store",
			checks: map[string]Check{
				"redis": up,
				"document_store": func(context.Context) ComponentHealth {
					return ComponentHealth{Status: StatusDegraded, Message: "circuit half-open"}
				},
			},
			want: StatusDegraded,
		},
		{
			name: "down wins",
			checks: map[string]Check{
				"document_store": func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} },
				"redis":          func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDown} },
			},
			want: StatusDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for n, ch := range tt.checks {
				c.Register(n, ch)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.checks))
			}
		})
	}
}

func TestSlowCheckIsDown(t *testing.T) {
	c := NewChecker()
	c.SetTimeout(10 * time.Millisecond)
	c.Register("postgres", func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		return ComponentHealth{Status: StatusUp}
	})
	report := c.Run(context.Background())
	if got := report.Components["postgres"]; got.Status != StatusDown || got.Message == "" {
		t.Errorf("postgres = %+v, want down with a message", got)
	}
}

func TestEmptyStatusCountsAsUp(t *testing.T) {
	c := NewChecker()
	c.Register("bolt", func(context.Context) ComponentHealth { return ComponentHealth{} })
	if got := c.Run(context.Background()).Components["bolt"].Status; got != StatusUp {
		t.Errorf("status = %s, want up", got)
	}
	if names := c.Names(); len(names) != 1 || names[0] != "bolt" {
		t.Errorf("Names() = %v", names)
	}
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusUp, http.StatusOK},
		{StatusDegraded, http.StatusOK},
		{StatusDown, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c := NewChecker()
			c.Register("redis", func(context.Context) ComponentHealth { return ComponentHealth{Status: tt.status} })

			rec := httptest.NewRecorder()
			c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.want {
				t.Errorf("code = %d, want %d", rec.Code, tt.want)
			}
			var report Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatal(err)
			}
			if report.Status != tt.status {
				t.Errorf("body status = %s", report.Status)
			}
		})
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "alive" {
		t.Errorf("body = %v", body)
	}
}
