package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/riadkhan60/chickenhut/internal/config"
	"github.com/riadkhan60/chickenhut/internal/repository/postgres"
	"github.com/riadkhan60/chickenhut/internal/scheduler"
	"github.com/riadkhan60/chickenhut/internal/server/handlers"
	"github.com/riadkhan60/chickenhut/internal/server/router"
	reportsvc "github.com/riadkhan60/chickenhut/internal/service/report"
	"github.com/riadkhan60/chickenhut/pkg/clients/mailer"
	"github.com/riadkhan60/chickenhut/pkg/localtime"
	"github.com/riadkhan60/chickenhut/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	zone, err := localtime.Load(cfg.Report.Timezone)
	if err != nil {
		baseLogger.Fatal("failed to load business time zone", zap.Error(err))
	}

	repo, err := postgres.NewPostgresRepository(context.Background(), cfg.Database.URL)
	if err != nil {
		baseLogger.Fatal("failed to init postgres repository", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			baseLogger.Error("failed to close postgres connection", zap.Error(err))
		}
	}()

	renderer := reportsvc.NewPDFRenderer(cfg.Report.OutputDir, zone)
	sender := mailer.New(cfg.Email, zone, baseLogger.Named("clients.mailer"))
	svc := reportsvc.NewService(repo, renderer, sender, baseLogger.Named("svc.report"))

	sched := scheduler.New(zone.Location(), repo, svc, baseLogger.Named("scheduler"),
		cfg.Report.PollInterval, cfg.Report.RunTimeout)
	sched.Start()
	defer sched.Stop()

	reportHandler := handlers.NewReportHandler(svc, repo, baseLogger.Named("handlers.report"))
	engine := router.New(reportHandler, baseLogger.Named("router"))

	// Bind before serving: a second instance would own its own cron schedule
	// and double-send reports, so refuse to start if the port is taken.
	ln, err := net.Listen("tcp", ":"+cfg.Server.Port)
	if err != nil {
		baseLogger.Fatal("port already in use, another instance may be running", zap.String("port", cfg.Server.Port), zap.Error(err))
	}

	srv := &http.Server{
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("report server starting", zap.String("port", cfg.Server.Port))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
