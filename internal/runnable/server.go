// Package runnable serves the comparison API next to the controllers in the manager.
package runnable

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"regiondiff/internal/env"
	"regiondiff/internal/myhttp"
	"regiondiff/internal/routes"
	"regiondiff/internal/storage"
	"regiondiff/internal/telemetry"

	pyroscopepprof "github.com/grafana/pyroscope-go/http/pprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
	"golang.org/x/xerrors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

type Server struct {
	address                string
	terminationGracePeriod time.Duration
	lameduck               time.Duration
	keepAlive              bool
	maxConnections         int
	viewerDirectory        string
	storageClient          storage.Storage
	kubeConfig             *rest.Config
}

func NewServer(storageClient storage.Storage, kubeConfig *rest.Config) *Server {
	return &Server{
		address:                env.OrDefault("ADDRESS", "0.0.0.0:8082"),
		terminationGracePeriod: env.OrDefault("TERMINATION_GRACE_PERIOD", 10*time.Second),
		lameduck:               env.OrDefault("LAMEDUCK", 1*time.Second),
		keepAlive:              env.OrDefault("HTTP_KEEPALIVE", true),
		maxConnections:         env.OrDefault("MAX_CONNECTIONS", 65532),
		viewerDirectory:        env.OrDefault("VIEWER_DIRECTORY", "./viewer"),
		storageClient:          storageClient,
		kubeConfig:             kubeConfig,
	}
}

var Debug = false

// Register installs the API routes on mux.
func Register(mux *myhttp.Router, clientset kubernetes.Interface, dynamicClient dynamic.Interface, storageClient storage.Storage) {
	mux.HandleFuncWithMiddleware("GET /api/{namespace}/{group}/{version}/{kind}/{name}", routes.Read(dynamicClient))
	mux.HandleFuncWithMiddleware("GET /api/{namespace}/{group}/{version}/{kind}/{name}/artifacts", routes.ListArtifacts(dynamicClient, storageClient))
	mux.HandleFuncWithMiddleware("PATCH /api/{namespace}/{group}/{version}/{kind}/{name}/artifacts", routes.UpdateArtifacts(dynamicClient))

	mux.HandleFuncWithMiddleware("GET /api/{$}", routes.ListNamespaces(clientset))
	mux.HandleFuncWithMiddleware("GET /api/{namespace}/{group}/{version}/{kind}", routes.ListResources(dynamicClient))
}

// Start serves until ctx is cancelled by the manager.
func (s *Server) Start(ctx context.Context) error {
	t, err := telemetry.Start(ctx, "regiondiff-api")
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

	clientset, err := kubernetes.NewForConfig(s.kubeConfig)
	if err != nil {
		return xerrors.Errorf("failed to create kubernetes clientset: %w", err)
	}
	dynamicClient, err := dynamic.NewForConfig(s.kubeConfig)
	if err != nil {
		return xerrors.Errorf("failed to create kubernetes dynamic client: %w", err)
	}

	mux := myhttp.NewServerMux(logger, httpRequestsDurationMicroSeconds)
	Register(mux, clientset, dynamicClient, s.storageClient)

	mux.Handle("GET /viewer/", http.StripPrefix("/viewer/", http.FileServer(http.Dir(s.viewerDirectory))))

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

	<-ctx.Done()
	time.Sleep(s.lameduck)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.terminationGracePeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return xerrors.Errorf("failed to shutdown server: %w", err)
	}

	return t.Shutdown(shutdownCtx)
}
