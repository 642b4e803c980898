// internal/middleware/accesslog.go
//
// Structured access log for harvester traffic.
//
// One INFO line per request on the global zap logger with method, path,
// verb, status, bytes, and latency.  The verb comes from the query string,
// or from requestinfo when the OAI handler recorded one; the request body
// is never read here.  When requestinfo.Enrich ran earlier in
// the chain the line also carries the harvester's agent class and country,
// and the same pair feeds metrics.HarvesterRequests.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/oairepo/internal/metrics"
	"github.com/yanizio/oairepo/internal/requestinfo"
)

// AccessLog wraps next and logs once the response is written.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		verb := r.URL.Query().Get("verb")

		next.ServeHTTP(ww, r)

		info := requestinfo.FromContext(r.Context())
		if info != nil && info.Verb != "" {
			verb = info.Verb
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("verb", verb),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		}

		agent, country := "unknown", ""
		if info != nil {
			agent = info.UA.Class()
			country = info.Geo.CountryISO
			fields = append(fields,
				zap.String("agent", agent),
				zap.String("country", country),
				zap.Stringer("ip", info.Geo.IP),
			)
		}
		metrics.HarvesterRequests.WithLabelValues(agent, country).Inc()

		zap.L().Info("http request", fields...)
	})
}
