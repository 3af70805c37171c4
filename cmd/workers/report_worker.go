package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "top-posts-report/report-backend/api/v1"
	"top-posts-report/report-backend/internal/config"
	"top-posts-report/report-backend/internal/media"
	"top-posts-report/report-backend/internal/reports"
	"top-posts-report/report-backend/internal/reports/scheduler"
)

// ReportWorker runs the report on a schedule and serves the run API
type ReportWorker struct {
	config   *config.Config
	logger   *zap.Logger
	resolver *media.CachingResolver
	schedule *scheduler.ScheduleManager
	server   *http.Server
}

// NewReportWorker creates a new report worker
func NewReportWorker(cfg *config.Config, logger *zap.Logger) (*ReportWorker, error) {
	resolver := media.NewCachingResolver(
		media.NewHTTPResolver(nil, reports.ResolverOptionsFromConfig(cfg), logger),
		cfg.Schedule.CacheTTL,
	)

	service := reports.NewServiceFromConfig(cfg, resolver, logger)
	api := v1.SetupReportsAPI(service, logger)

	scheduleConfig := scheduler.DefaultScheduleManagerConfig()
	scheduleConfig.CronExpression = cfg.Schedule.Cron
	schedule, err := scheduler.NewScheduleManager(api.Runner, logger, scheduleConfig)
	if err != nil {
		resolver.Close()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      v1.NewRouter(api, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &ReportWorker{
		config:   cfg,
		logger:   logger,
		resolver: resolver,
		schedule: schedule,
		server:   server,
	}, nil
}

// Start starts the schedule and the HTTP server and blocks until ctx is done
// or the server fails.
func (w *ReportWorker) Start(ctx context.Context) error {
	if err := w.schedule.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		w.logger.Info("Server started", zap.String("addr", w.server.Addr))
		if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("Report worker shutting down")
		return nil
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
}

// Stop shuts down the server, waits for a scheduled run and releases the
// media cache.
func (w *ReportWorker) Stop(ctx context.Context) {
	if err := w.server.Shutdown(ctx); err != nil {
		w.logger.Error("Server forced to shutdown", zap.Error(err))
	}
	w.schedule.Stop()
	w.resolver.Close()
}

func main() {
	cfg, err := config.LoadConfig(os.Getenv("REPORT_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(true); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	worker, err := NewReportWorker(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create report worker", zap.Error(err))
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Report worker starting", zap.String("cron", cfg.Schedule.Cron))
	if err := worker.Start(ctx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	worker.Stop(shutdownCtx)

	logger.Info("Report worker stopped")
}
