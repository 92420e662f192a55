package metrics

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

var indexPage = template.Must(template.New("index").Parse(`<html><body>
<h1>Link Suggestion Metrics</h1>
<p><a href="/metrics">/metrics</a></p>
<ul>{{range .}}<li><code>{{.}}</code></li>{{end}}</ul>
</body></html>`))

// runMetrics are listed on the index page.
var runMetrics = []string{
	"linksuggest_chunks_total",
	"linksuggest_chunk_duration_seconds",
	"linksuggest_budget_breaks_total",
	"linksuggest_runs_completed_total",
	"circuit_breaker_state",
}

// NewMux serves the scrape endpoint and a small index page.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexPage.Execute(w, runMetrics)
	})
	return mux
}

// StartServer serves NewMux on port in the background and returns its
// shutdown function.
func StartServer(port int) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMux(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return server.Shutdown
}
