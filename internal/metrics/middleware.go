package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// NoWorkload labels requests whose handler never named a workload type.
const NoWorkload = "none"

type workloadLabelKey struct{}

// SetWorkload names the workload type a request ran, for the request metrics
// recorded by Middleware. It is a no-op outside Middleware.
func SetWorkload(ctx context.Context, workloadType string) {
	if label, ok := ctx.Value(workloadLabelKey{}).(*string); ok {
		*label = workloadType
	}
}

// statusRecorder keeps the first status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Middleware counts responses of endpoint by status and observes request
// latency by endpoint, workload type and status.
func Middleware(next http.Handler, endpoint string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		workload := NoWorkload
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), workloadLabelKey{}, &workload)))

		status := strconv.Itoa(rec.status)
		EndpointResponses.WithLabelValues(endpoint, status).Inc()
		RequestDuration.WithLabelValues(endpoint, workload, status).Observe(time.Since(start).Seconds())
	})
}
