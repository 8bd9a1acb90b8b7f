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

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	appHTTP "github.com/cmlabs-hris/attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/cache"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/remote"
	anomalyService "github.com/cmlabs-hris/attendance-engine/internal/service/anomaly"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	reportService "github.com/cmlabs-hris/attendance-engine/internal/service/report"
	"github.com/go-chi/httplog/v3"
	"github.com/go-redis/redis/v8"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := clock.LoadLocation(cfg.Attendance.ReportTimezone)
	clk := clock.System()
	rules := attendance.DefaultRules(loc)
	if cfg.Attendance.CompleteDayMinutes > 0 {
		rules.CompleteDayMinutes = cfg.Attendance.CompleteDayMinutes
	}
	if cfg.Attendance.StandardDayMinutes > 0 {
		rules.StandardDayMinutes = cfg.Attendance.StandardDayMinutes
	}

	// Event source and directory
	var (
		store     punch.Store
		directory employee.Directory
	)
	if cfg.EventSource.Type == config.EventSourcePostgres || cfg.Database.Password != "" {
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := postgresql.Migrate(ctx, db); err != nil {
				return fmt.Errorf("error applying schema: %w", err)
			}
			slog.Info("Database schema applied")
		}

		directory = postgresql.NewEmployeeDirectory(db)
		store = postgresql.NewPunchEventRepository(db)
	}
	if cfg.EventSource.Type == config.EventSourceRemote {
		store = remote.NewEventStore(remote.Options{
			BaseURL:    cfg.EventSource.BaseURL,
			Token:      cfg.EventSource.Token,
			Timeout:    cfg.EventSource.Timeout,
			RetryCount: cfg.EventSource.RetryCount,
			PageSize:   cfg.EventSource.PageSize,
		})
	}
	slog.Info("Event source configured", "type", cfg.EventSource.Type, "directory", directory != nil)

	// Summary cache
	var summaryCache attendance.SummaryCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, summaries will not be cached", "addr", cfg.Redis.Addr, "error", err)
		} else {
			summaryCache = cache.NewSummaryCache(client, cfg.Redis.TTL, cache.Namespace(rules))
		}
	}

	// Services
	attendanceSvc := attendanceService.NewAttendanceService(store, store, directory, summaryCache, clk, rules, attendanceService.Options{
		FetchTimeout: cfg.Attendance.FetchTimeout,
		Workers:      cfg.Attendance.Workers,
	})
	hub := sse.NewHub(16)
	anomalySvc := anomalyService.NewAnomalyService(store, store, summaryCache, hub, clk, rules, anomalyService.DetectorRules{
		Window:              cfg.Anomaly.Window,
		DuplicateWindow:     cfg.Anomaly.DuplicateWindow,
		AutoCloseMissingOut: cfg.Anomaly.AutoCloseMissingOut,
	})
	reportSvc := reportService.NewReportService(attendanceSvc, store, directory, loc)
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	// Handlers
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc, clk, loc)
	reportHandler := appHTTP.NewReportHandler(reportSvc, clk, loc)
	anomalyHandler := appHTTP.NewAnomalyHandler(anomalySvc, hub)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Logger:         logger,
			LogLevel:       cfg.SlogLevel(),
		},
		JWTService,
		attendanceHandler,
		reportHandler,
		anomalyHandler,
	)

	// Background anomaly detection
	scheduler := cron.NewScheduler()
	if cfg.Anomaly.Enabled {
		if err := cron.NewAnomalyJobs(anomalySvc, cfg.Anomaly.ScanInterval).RegisterJobs(scheduler); err != nil {
			return fmt.Errorf("error registering anomaly job: %w", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
