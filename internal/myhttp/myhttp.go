package myhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

func newServerMux(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram) *Router {
	return &Router{
		ServeMux:                         http.NewServeMux(),
		logger:                           logger,
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
}

var NewServerMux = newServerMux

type loggerKey struct{}

// Logger returns the request scoped logger installed by the middleware, or slog's default.
func Logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		Logger(r.Context()).Error("failed to marshal json", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteError replies with {"error": message}. 5xx details are logged and not returned.
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	message := err.Error()
	if status >= http.StatusInternalServerError {
		Logger(r.Context()).Error("request failed", "error", err)
		message = http.StatusText(status)
	}
	WriteJSON(w, r, status, errorResponse{Error: message})
}
