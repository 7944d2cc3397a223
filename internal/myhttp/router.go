package myhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/klauspost/compress/gzhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Router struct {
	*http.ServeMux
	logger                           *slog.Logger
	httpRequestsDurationMicroSeconds metric.Int64Histogram
}

func (m *Router) HandleWithMiddleware(pattern string, handler http.Handler) {
	m.ServeMux.Handle(pattern, m.middleware(pattern, handler))
}

func (m *Router) HandleFuncWithMiddleware(pattern string, handler http.HandlerFunc) {
	m.ServeMux.Handle(pattern, m.middleware(pattern, handler))
}

func (m *Router) middleware(pattern string, next http.Handler) http.Handler {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		logger := m.logger.With(
			slog.String("traceid", span.SpanContext().TraceID().String()),
			slog.String("spanid", span.SpanContext().SpanID().String()),
		)
		r = r.WithContext(WithLogger(r.Context(), logger))

		defer func() {
			if err := recover(); err != nil {
				logger.Error(fmt.Sprint(err), "stack", string(debug.Stack()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}

			if err := r.Context().Err(); errors.Is(err, context.Canceled) {
				logger.Debug("client closed connection")
			}
		}()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		pyroscope.TagWrapper(r.Context(), pyroscope.Labels("handler", pattern, "method", r.Method), func(ctx context.Context) {
			now := time.Now()
			next.ServeHTTP(recorder, r)
			m.httpRequestsDurationMicroSeconds.Record(ctx, time.Since(now).Microseconds(), metric.WithAttributes(
				attribute.Key("method").String(r.Method),
				attribute.Key("handler").String(pattern),
				attribute.Key("status").Int(recorder.status),
			))
		})
		if recorder.status >= http.StatusBadRequest {
			logger.Debug("request rejected", "handler", pattern, "status", recorder.status)
		}
	})

	// Diff images are mostly incompressible but the base64 JSON around them is not.
	return otelhttp.NewHandler(gzhttp.GzipHandler(handler), pattern, otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("%s %s", r.Method, operation)
	}), otelhttp.WithMetricAttributesFn(func(r *http.Request) []attribute.KeyValue {
		return []attribute.KeyValue{}
	}))
}

// statusRecorder remembers the status code so rejected comparisons show up in the duration
// histogram separately from served ones.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
