package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/riadkhan60/chickenhut/internal/config"
	"github.com/riadkhan60/chickenhut/pkg/logger"
)

// Scheduled pg_dump wrapper for the POS database: timestamped plain-SQL
// dumps, oldest-first rotation, and a couple of HTTP endpoints to trigger
// and list backups.

type backupRunner struct {
	cfg    config.BackupConfig
	logger *zap.Logger
	mu     sync.Mutex
}

func (b *backupRunner) run(ctx context.Context) (string, error) {
	if !b.mu.TryLock() {
		return "", errors.New("a backup is already in progress")
	}
	defer b.mu.Unlock()

	if err := os.MkdirAll(b.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T15-04-05")
	path := filepath.Join(b.cfg.Dir, fmt.Sprintf("backup-%s-%s.sql", b.cfg.PGDatabase, timestamp))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, filepath.Join(b.cfg.PGBinPath, "pg_dump"),
		"-h", b.cfg.PGHost,
		"-p", b.cfg.PGPort,
		"-U", b.cfg.PGUser,
		"-F", "p",
		b.cfg.PGDatabase)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+b.cfg.PGPassword)
	cmd.Stdout = out
	var stderr strings.Builder
	cmd.Stderr = &stderr

	b.logger.Info("starting backup", zap.String("path", path))
	if err := cmd.Run(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("pg_dump failed: %w: %s", err, stderr.String())
	}

	b.logger.Info("backup completed", zap.String("path", path))
	b.rotate()
	return path, nil
}

// rotate removes the oldest dumps beyond the configured cap.
func (b *backupRunner) rotate() {
	files, err := b.list()
	if err != nil {
		b.logger.Error("failed reading backup dir", zap.Error(err))
		return
	}
	for len(files) > b.cfg.MaxBackups {
		oldest := files[0]
		files = files[1:]
		if err := os.Remove(oldest); err != nil {
			b.logger.Error("failed deleting old backup", zap.String("path", oldest), zap.Error(err))
			return
		}
		b.logger.Info("deleted old backup", zap.String("path", oldest))
	}
}

// list returns backup files sorted oldest first.
func (b *backupRunner) list() ([]string, error) {
	entries, err := os.ReadDir(b.cfg.Dir)
	if err != nil {
		return nil, err
	}
	type dumped struct {
		path  string
		mtime time.Time
	}
	var dumps []dumped
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "backup-") || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dumps = append(dumps, dumped{path: filepath.Join(b.cfg.Dir, e.Name()), mtime: info.ModTime()})
	}
	sort.Slice(dumps, func(i, j int) bool { return dumps[i].mtime.Before(dumps[j].mtime) })

	paths := make([]string, len(dumps))
	for i, d := range dumps {
		paths[i] = d.path
	}
	return paths, nil
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	runner := &backupRunner{cfg: cfg.Backup, logger: baseLogger.Named("backup")}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Backup.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if _, err := runner.run(ctx); err != nil {
			baseLogger.Error("scheduled backup failed", zap.Error(err))
		}
	}); err != nil {
		baseLogger.Fatal("invalid backup schedule", zap.String("schedule", cfg.Backup.Schedule), zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/backup", func(ctx *gin.Context) {
		path, err := runner.run(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "path": path})
	})
	r.GET("/backups", func(ctx *gin.Context) {
		paths, err := runner.list()
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "backups": paths})
	})
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Backup.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("backup server starting", zap.String("port", cfg.Backup.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
