package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/riadkhan60/chickenhut/internal/service/report"
)

// ScheduleSource reads the persisted trigger time.
type ScheduleSource interface {
	SendingTime(ctx context.Context) (string, error)
}

// ReportRunner is the pipeline entry the timer fires.
type ReportRunner interface {
	Run(ctx context.Context) (report.RunResult, error)
}

// Scheduler keeps a daily cron entry in sync with the persisted sending
// time. A polling loop re-reads the configuration so administrative changes
// take effect within one interval, without a restart. Rescheduling never
// touches an in-flight run; the orchestrator's gate owns that.
type Scheduler struct {
	cron       *cron.Cron
	source     ScheduleSource
	runner     ReportRunner
	logger     *zap.Logger
	poll       time.Duration
	runTimeout time.Duration

	mu       sync.Mutex
	lastTime string
	entryID  cron.EntryID
	hasEntry bool

	done chan struct{}
}

// New creates a scheduler whose trigger time is interpreted in the given
// business-local zone.
func New(loc *time.Location, source ScheduleSource, runner ReportRunner, logger *zap.Logger, poll, runTimeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		source:     source,
		runner:     runner,
		logger:     logger,
		poll:       poll,
		runTimeout: runTimeout,
		done:       make(chan struct{}),
	}
}

// Start installs the initial timer and begins watching the persisted
// sending time.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Duration("poll_interval", s.poll))
	s.reconcileNow()
	s.cron.Start()
	go s.watch()
}

// Stop halts the watcher and the cron timer. In-flight report runs are not
// interrupted.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	close(s.done)
	s.cron.Stop()
}

func (s *Scheduler) watch() {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.reconcileNow()
		}
	}
}

func (s *Scheduler) reconcileNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Reconcile(ctx); err != nil {
		s.logger.Error("schedule reconcile failed", zap.Error(err))
	}
}

// Reconcile reads the persisted trigger time and reprograms the daily timer
// when it changed. Repeated calls with an unchanged value keep the one
// installed entry untouched.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	sendingTime, err := s.source.SendingTime(ctx)
	if err != nil {
		return fmt.Errorf("failed reading sending time: %w", err)
	}

	spec, err := cronSpec(sendingTime)
	if err != nil {
		return fmt.Errorf("invalid sending time %q: %w", sendingTime, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sendingTime == s.lastTime && s.hasEntry {
		return nil
	}

	if s.hasEntry {
		s.cron.Remove(s.entryID)
		s.hasEntry = false
	}

	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("failed scheduling report job: %w", err)
	}
	s.entryID = id
	s.hasEntry = true
	s.lastTime = sendingTime

	s.logger.Info("report job scheduled",
		zap.String("sending_time", sendingTime),
		zap.String("cron", spec))
	return nil
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, report.ErrBusy):
		s.logger.Warn("scheduled report skipped, a run is already in progress")
	case errors.Is(err, report.ErrNothingToReport):
		s.logger.Info("scheduled report skipped, no unreported completed orders")
	case err != nil:
		s.logger.Error("scheduled report failed", zap.Error(err))
	default:
		s.logger.Info("scheduled report sent", zap.Int("orders_count", res.OrdersCount))
	}
}

// cronSpec converts a wall-clock "HH:MM" into a daily cron expression.
func cronSpec(hhmm string) (string, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}
