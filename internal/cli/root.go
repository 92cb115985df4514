// Package cli implements the docgraph command line.
package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/app"
	"github.com/docgraph/ingest/internal/graph"
	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/worker"
)

// annotationStandalone marks commands that run without a container
const annotationStandalone = "standalone"

// Linker runs linking passes
type Linker interface {
	Link(ctx context.Context, filename string) (int, error)
	RelinkAll(ctx context.Context) (int, error)
}

// Services holds the collaborators the commands call
type Services struct {
	Store    graph.Store
	Ingester worker.Ingester
	Linker   Linker
	Triggers worker.Triggers
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// Builder creates the application container for one run
type Builder func(ctx context.Context) (*app.Container, error)

var (
	store    graph.Store
	ingester worker.Ingester
	linker   Linker
	triggers worker.Triggers
	registry *prometheus.Registry
	logger   *zap.Logger

	builder    Builder
	container  *app.Container
	metricsSrv *http.Server
)

var metricsAddr string

var rootCmd = &cobra.Command{
	Use:   "docgraph",
	Short: "Ingest PDFs into a linked knowledge graph",
	Long: `docgraph extracts text and images from PDF files, describes images with a
vision model, summarises each document, stores embedded chunks in a graph
database and links documents that reference each other.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}

// SetServices injects the collaborators used by the commands
func SetServices(s Services) {
	store = s.Store
	ingester = s.Ingester
	linker = s.Linker
	triggers = s.Triggers
	registry = s.Registry
	logger = s.Logger
}

// Execute runs the command line. The container is built on first use by a
// command that needs it and closed before Execute returns.
func Execute(ctx context.Context, b Builder) error {
	builder = b
	defer shutdown(context.Background())
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationStandalone] == "true" || store != nil || builder == nil {
		return nil
	}

	c, err := builder(cmd.Context())
	if err != nil {
		return err
	}
	container = c
	SetServices(Services{
		Store:    c.Store,
		Ingester: c.Processor,
		Linker:   c.Linker,
		Triggers: c.Handler,
		Registry: c.Registry,
		Logger:   c.Logger,
	})

	if metricsAddr != "" {
		metricsSrv = serveMetrics(metricsAddr, registry, logger)
	}
	return nil
}

func shutdown(ctx context.Context) {
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
		metricsSrv = nil
	}
	if container != nil {
		if err := container.Close(ctx); err != nil {
			container.Logger.Warn("failed to close container", zap.Error(err))
		}
		container = nil
	}
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	log = logging.OrNop(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsHandler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}
