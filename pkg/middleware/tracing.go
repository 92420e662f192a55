package middleware

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/tracing"
)

// Tracing opens a root span per request, keyed by the request id, and logs
// the span tree once the response is written. Server errors mark the span
// failed. It must run after RequestID.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path, w.Header().Get(RequestIDHeader))
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			span.End()
			status := statusOf(ww)
			span.SetAttr("status", status)
			if status >= http.StatusInternalServerError {
				span.Fail(fmt.Errorf("status %d", status))
			}
			span.Log()
		}()
		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}
