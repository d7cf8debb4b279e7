package report

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/riadkhan60/chickenhut/internal/domain/models"
)

// ErrBusy is returned when a run is already in progress. Callers are never
// queued; retry falls to the next scheduled tick or the operator.
var ErrBusy = errors.New("a report is already being processed")

// ErrNothingToReport is returned when no eligible orders exist. It is a
// success outcome for automated callers, not a failure.
var ErrNothingToReport = errors.New("no unreported completed orders found")

// StepError identifies which pipeline step failed: "fetch", "render",
// "send" or "mark". Everything before "mark" leaves no persistent state
// behind, so those failures are safe to retry on the next trigger.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("report %s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// OrderSource provides eligible orders and the mark-as-reported mutation.
type OrderSource interface {
	FetchUnreported(ctx context.Context) ([]models.ReportRow, error)
	FetchForReview(ctx context.Context, limit int, includeReported bool) ([]models.ReportRow, error)
	MarkReported(ctx context.Context, ids []int64) error
}

// Renderer produces the report document and returns its file path.
type Renderer interface {
	Render(rows []models.ReportRow) (string, error)
}

// Sender delivers a rendered document to the configured recipient.
type Sender interface {
	Send(ctx context.Context, path string) error
}

// RunResult summarizes a completed pipeline run.
type RunResult struct {
	OrdersCount  int
	DocumentPath string
}

// RenderOptions controls the verification-only rendering path.
type RenderOptions struct {
	UseSampleData   bool
	Limit           int
	IncludeReported bool
}

// Service orchestrates the fetch -> render -> send -> mark pipeline. A
// single-slot gate serializes runs process-wide: concurrent triggers from
// the timer or HTTP observe ErrBusy immediately instead of blocking.
type Service struct {
	source   OrderSource
	renderer Renderer
	sender   Sender
	logger   *zap.Logger

	slot chan struct{}
}

func NewService(source OrderSource, renderer Renderer, sender Sender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:   source,
		renderer: renderer,
		sender:   sender,
		logger:   logger,
		slot:     make(chan struct{}, 1),
	}
}

// Run executes one full pipeline. The fetched set is exactly the set later
// marked reported; orders completing mid-run wait for the next one. Marking
// is deliberately the last step: a failure anywhere earlier leaves every
// order unreported and the whole batch is regenerated on the next trigger.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	select {
	case s.slot <- struct{}{}:
	default:
		return RunResult{}, ErrBusy
	}
	defer func() { <-s.slot }()

	rows, err := s.source.FetchUnreported(ctx)
	if err != nil {
		return RunResult{}, &StepError{Step: "fetch", Err: err}
	}
	if len(rows) == 0 {
		return RunResult{}, ErrNothingToReport
	}

	path, err := s.renderer.Render(rows)
	if err != nil {
		return RunResult{}, &StepError{Step: "render", Err: err}
	}

	if err := s.sender.Send(ctx, path); err != nil {
		// The document stays on disk for inspection; nothing was marked.
		return RunResult{}, &StepError{Step: "send", Err: err}
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.OrderID
	}
	if err := s.source.MarkReported(ctx, ids); err != nil {
		// The report was delivered but the orders are still flagged
		// unreported, so the next run will include them again. Logged on its
		// own so operators can reconcile the duplicate.
		s.logger.Error("report delivered but orders not marked reported; they will be re-sent next run",
			zap.Int("orders_count", len(ids)),
			zap.Int64s("order_ids", ids),
			zap.Error(err))
		return RunResult{}, &StepError{Step: "mark", Err: err}
	}

	s.logger.Info("report sent", zap.Int("orders_count", len(rows)), zap.String("document", path))
	return RunResult{OrdersCount: len(rows), DocumentPath: path}, nil
}

// RenderOnly produces a document without sending or marking anything,
// optionally over synthetic data. It does not take the run gate.
func (s *Service) RenderOnly(ctx context.Context, opts RenderOptions) (RunResult, error) {
	var rows []models.ReportRow
	if opts.UseSampleData {
		rows = SampleRows(opts.Limit)
	} else {
		var err error
		rows, err = s.source.FetchForReview(ctx, opts.Limit, opts.IncludeReported)
		if err != nil {
			return RunResult{}, &StepError{Step: "fetch", Err: err}
		}
	}
	if len(rows) == 0 {
		return RunResult{}, ErrNothingToReport
	}

	path, err := s.renderer.Render(rows)
	if err != nil {
		return RunResult{}, &StepError{Step: "render", Err: err}
	}
	return RunResult{OrdersCount: len(rows), DocumentPath: path}, nil
}
