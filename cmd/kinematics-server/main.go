package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/carfile"
	"github.com/signalsfoundry/suspension-kinematics/internal/jobs"
	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/internal/observability"
	"github.com/signalsfoundry/suspension-kinematics/internal/rpc"
	"github.com/signalsfoundry/suspension-kinematics/kb"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// Config holds the server settings normally parsed from flags.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	LogLevel       string
	LogFormat      string
	Workers        int
	CarPaths       []string
	LoadSample     bool
	// Registry receives the Prometheus collectors; the default registry
	// is used when nil.
	Registry *prometheus.Registry
}

func main() {
	cfg := Config{}
	var cars string
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", ":50051", "TCP address the kinematics gRPC server listens on")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	flag.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "text"), "log format: text or json")
	flag.IntVar(&cfg.Workers, "workers", 0, "analysis workers (0 uses every CPU)")
	flag.StringVar(&cars, "cars", "", "comma-separated car files (.json or "+carfile.Extension+") loaded into the garage")
	flag.BoolVar(&cfg.LoadSample, "sample", true, "register the built-in sample car")
	flag.Parse()
	cfg.CarPaths = splitList(cars)

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, AddSource: true})

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(context.Background(), "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(context.Background(), "kinematics server failed", logging.Error(err))
		os.Exit(1)
	}
}

// run serves the kinematics service on lis until ctx is done.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	traceCfg, err := observability.TracingConfigFromEnv()
	if err != nil {
		return fmt.Errorf("tracing config: %w", err)
	}
	tracing, err := observability.StartTracing(ctx, traceCfg, log)
	if err != nil {
		return fmt.Errorf("start tracing: %w", err)
	}
	defer tracing.Close(context.Background())

	var reg prometheus.Registerer
	if cfg.Registry != nil {
		reg = cfg.Registry
	}
	analyses, err := observability.NewAnalysisCollector(reg)
	if err != nil {
		return fmt.Errorf("analysis metrics: %w", err)
	}
	queue, err := observability.NewQueueCollector(reg)
	if err != nil {
		return fmt.Errorf("queue metrics: %w", err)
	}

	garage := kb.NewGarage()
	if err := loadGarage(ctx, garage, cfg, log); err != nil {
		return err
	}

	solver := core.NewSolver(core.WithLogger(log), core.WithRecorder(analyses))
	pool := jobs.NewPool(solver, jobs.Config{Workers: cfg.Workers},
		jobs.WithLogger(log),
		jobs.WithRecorder(queue),
	)
	defer pool.Close()

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			analyses.UnaryServerInterceptor(),
		),
	)
	health := rpc.NewServer(garage, pool, log).Register(server)

	metricsSrv := serveMetrics(cfg.MetricsAddress, analyses, log)

	serveErr := make(chan error, 1)
	log.Info(ctx, "starting kinematics gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Int("workers", pool.Workers()),
		logging.Int("cars", len(garage.List())),
	)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server exited: %w", err)
		}
		return nil
	}

	log.Info(context.Background(), "shutting down kinematics server")
	health.Shutdown()
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

func loadGarage(ctx context.Context, garage *kb.Garage, cfg Config, log logging.Logger) error {
	if cfg.LoadSample {
		if err := garage.Add(model.SampleCar()); err != nil {
			return fmt.Errorf("sample car: %w", err)
		}
	}
	for _, path := range cfg.CarPaths {
		car, err := carfile.Open(path)
		if err != nil {
			return fmt.Errorf("load car: %w", err)
		}
		if err := garage.Add(car); err != nil {
			return fmt.Errorf("load car %s: %w", path, err)
		}
		log.Info(ctx, "loaded car", logging.String("path", path), logging.String("name", car.Name))
	}
	return nil
}

func serveMetrics(addr string, collector *observability.AnalysisCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Error(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
