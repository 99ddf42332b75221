package middle

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type Middleware func(http.Handler) http.Handler

// MetricsRecorder receives one observation per request. Paths are left out
// to keep label cardinality bounded.
type MetricsRecorder interface {
	Observe(method, code string, duration time.Duration)
}

func Metrics(recorder MetricsRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			recorder.Observe(
				r.Method,
				strconv.Itoa(code),
				time.Since(start),
			)
		}
		return http.HandlerFunc(fn)
	}
}
