package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regiondiff/internal/env"
	"regiondiff/internal/myhttp"
	"regiondiff/internal/telemetry"

	pyroscopepprof "github.com/grafana/pyroscope-go/http/pprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
	"golang.org/x/xerrors"
)

type Server struct {
	address                string
	terminationGracePeriod time.Duration
	lameduck               time.Duration
	keepAlive              bool
	maxConnections         int
	maxUploadBytes         int64
	workers                int
}

func NewServer() *Server {
	return &Server{
		address:                env.OrDefault("ADDRESS", "0.0.0.0:8383"),
		terminationGracePeriod: env.OrDefault("TERMINATION_GRACE_PERIOD", 10*time.Second),
		lameduck:               env.OrDefault("LAMEDUCK", 1*time.Second),
		keepAlive:              env.OrDefault("HTTP_KEEPALIVE", true),
		maxConnections:         env.OrDefault("MAX_CONNECTIONS", 65532),
		maxUploadBytes:         env.OrDefault[int64]("MAX_UPLOAD_BYTES", 32<<20),
		workers:                env.OrDefault("WORKERS", 4),
	}
}

var Debug = false

func (s *Server) Start(ctx context.Context) error {
	t, err := telemetry.Start(ctx, "diff-server")
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(os.Stderr, Debug)
	if err != nil {
		return err
	}

	httpRequestsDurationMicroSeconds, err := t.Meter.Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		return xerrors.Errorf("failed to create histogram: %w", err)
	}
	h, err := newDiffHandler(t.Meter, s.maxUploadBytes, s.workers)
	if err != nil {
		return err
	}

	mux := myhttp.NewServerMux(logger, httpRequestsDurationMicroSeconds)

	mux.HandleFuncWithMiddleware("POST /diff", h.ServeHTTP)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(http.StatusText(http.StatusOK)))
	})

	mux.Handle("GET /metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	))

	if Debug {
		mux.HandleFunc("GET /debug/pprof/", pprof.Index)
		mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
		mux.HandleFunc("GET /debug/pprof/profile", pyroscopepprof.Profile)
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return xerrors.Errorf("failed to listen on address %s: %w", s.address, err)
	}

	server := &http.Server{
		Handler: mux,
	}
	server.SetKeepAlivesEnabled(s.keepAlive)

	go func() {
		if err := server.Serve(netutil.LimitListener(listener, s.maxConnections)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to serve HTTP", "error", err)
		}
	}()
	logger.Info("listening", "address", s.address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit
	time.Sleep(s.lameduck)

	ctx, cancel := context.WithTimeout(ctx, s.terminationGracePeriod)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return xerrors.Errorf("failed to shutdown server: %w", err)
	}

	return t.Shutdown(ctx)
}

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	Debug = env.OrDefault("DEBUG", false)

	ctx := context.Background()

	server := NewServer()
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
