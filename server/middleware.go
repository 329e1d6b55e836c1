package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/ingame-bot/telemetry"
)

const correlationHeader = "X-Correlation-ID"

// correlationMiddleware reuses or assigns a correlation id, opens a span and logs the request.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if corr := r.Header.Get(correlationHeader); corr != "" {
			ctx = telemetry.WithCorrelation(ctx, corr)
		} else {
			ctx = telemetry.NewCorrelation(ctx)
		}
		corr := telemetry.GetCorrelation(ctx)
		w.Header().Set(correlationHeader, corr)

		route := routeName(r)
		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+route,
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", route))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", rec.statusCode))
		if rec.statusCode >= 500 {
			telemetry.RecordError(span, fmt.Errorf("HTTP %d", rec.statusCode))
		}
		telemetry.Inc(telemetry.HTTPRequests, route, strconv.Itoa(rec.statusCode))
		telemetry.LoggerWithCorr(ctx).Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.statusCode),
			slog.String("component", "http"))
	})
}

func routeName(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// statusRecorder wraps ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// recoveryLogger routes gorilla's panic reports to slog.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	slog.Error("http handler panic", slog.String("panic", fmt.Sprint(v...)), slog.String("component", "http"))
}
