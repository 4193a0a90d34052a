package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/cartograph/internal/browser"
	"github.com/UnknownOlympus/cartograph/internal/config"
	"github.com/UnknownOlympus/cartograph/internal/geocoding"
	"github.com/UnknownOlympus/cartograph/internal/metrics"
	"github.com/UnknownOlympus/cartograph/internal/repository"
	"github.com/UnknownOlympus/cartograph/internal/service"
	"github.com/UnknownOlympus/cartograph/internal/spreadsheet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

func main() {
	os.Exit(run())
}

// run wires the application together and returns the process exit code.
// Deferred cleanup (browser, output file, database) runs before main exits.
func run() int {
	// Cancel the run on Ctrl+C; the browser session is still closed by the runner.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	var opts []service.Option

	var repo *repository.Repository
	if cfg.Database.Enabled() {
		dtb, err := repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to connect to DB", "error", err)
			return 1
		}
		repo = repository.NewRepository(dtb, logger)
		defer repo.Close()

		if err = repo.EnsureSchema(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to prepare DB schema", "error", err)
			return 1
		}
		opts = append(opts, service.WithStore(repo))
	}

	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Fallback.Type),
		APIKey:    cfg.Fallback.APIKey,
		RateLimit: cfg.Fallback.RateLimit,
		Logger:    logger,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create fallback provider", "error", err)
		return 1
	}
	if provider != nil {
		logger.InfoContext(ctx, "Fallback provider initialized", "type", cfg.Fallback.Type)
		opts = append(opts, service.WithFallback(provider))
	}

	if cfg.MonitoringPort > 0 {
		go startMonitoringServer(ctx, logger, reg, repo, cfg.MonitoringPort)
	}

	session := browser.New(browser.Config{
		MapURL:         cfg.Browser.MapURL,
		Headless:       cfg.Browser.Headless,
		RemoteURL:      cfg.Browser.RemoteURL,
		BinPath:        cfg.Browser.BinPath,
		SettleTime:     cfg.Browser.SettleTime,
		LocatorTimeout: cfg.Browser.LocatorTimeout,
	}, logger)

	timings := geocoding.DefaultTimings()
	timings.Timeout = cfg.Resolver.SearchTimeout
	timings.PollInterval = cfg.Resolver.PollInterval
	timings.Settle = cfg.Resolver.ResultSettle

	runner := service.NewRunner(
		logger,
		spreadsheet.NewLoader(cfg.InputFile, cfg.SheetIndex, cfg.AddressColumn),
		repository.NewCSVWriter(cfg.OutputFile),
		session,
		geocoding.NewResolver(logger, timings),
		appMetrics,
		cfg.DelayMin,
		cfg.DelayMax,
		opts...,
	)

	logger.InfoContext(ctx, "Geocoding started", "input", cfg.InputFile, "output", cfg.OutputFile)

	summary, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.WarnContext(ctx, "Run interrupted", "processed", summary.Total)
		} else {
			logger.ErrorContext(ctx, "Geocoding failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Printf("Success: %d/%d\n", summary.Succeeded, summary.Total)
		return 1
	}

	fmt.Printf("Done! Results saved to %s\n", cfg.OutputFile)
	fmt.Printf("Success: %d/%d\n", summary.Succeeded, summary.Total)

	return 0
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// The health check pings the database when the result store is enabled.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	repo *repository.Repository,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if repo != nil {
			if err := repo.Ping(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, "DB ping failed"
			}
		}
		writer.WriteHeader(status)
		if _, err := writer.Write([]byte(body)); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
