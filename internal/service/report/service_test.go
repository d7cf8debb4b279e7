package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/riadkhan60/chickenhut/internal/domain/models"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == name {
			n++
		}
	}
	return n
}

type fakeSource struct {
	log      *callLog
	rows     []models.ReportRow
	fetchErr error
	markErr  error

	mu     sync.Mutex
	marked [][]int64
}

func (f *fakeSource) FetchUnreported(ctx context.Context) ([]models.ReportRow, error) {
	f.log.add("fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.rows, nil
}

func (f *fakeSource) FetchForReview(ctx context.Context, limit int, includeReported bool) ([]models.ReportRow, error) {
	f.log.add("review")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.rows, nil
}

func (f *fakeSource) MarkReported(ctx context.Context, ids []int64) error {
	f.log.add("mark")
	if f.markErr != nil {
		return f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, ids)
	return nil
}

type fakeRenderer struct {
	log     *callLog
	path    string
	err     error
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	gotRows [][]models.ReportRow
}

func (f *fakeRenderer) Render(rows []models.ReportRow) (string, error) {
	f.log.add("render")
	f.mu.Lock()
	f.gotRows = append(f.gotRows, rows)
	f.mu.Unlock()
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeSender struct {
	log *callLog
	err error
}

func (f *fakeSender) Send(ctx context.Context, path string) error {
	f.log.add("send")
	return f.err
}

func testRows() []models.ReportRow {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	table := 7
	return []models.ReportRow{
		{
			OrderID:      1,
			TableNumber:  &table,
			Total:        decimal.RequireFromString("500"),
			CreatedAt:    base.Add(-time.Hour),
			CompletedAt:  base,
			ItemsSummary: "2x Chicken Burger (itm-no:101)",
		},
		{
			OrderID:      2,
			TableNumber:  nil,
			Total:        decimal.RequireFromString("750.50"),
			CreatedAt:    base,
			CompletedAt:  base.Add(30 * time.Minute),
			ItemsSummary: "1x French Fries (itm-no:201), 1x Coke (itm-no:301)",
		},
		{
			OrderID:      3,
			TableNumber:  &table,
			Total:        decimal.RequireFromString("1200"),
			CreatedAt:    base.Add(time.Hour),
			CompletedAt:  base.Add(2 * time.Hour),
			ItemsSummary: "3x Chicken Burger (itm-no:101)",
		},
	}
}

func newTestService(src *fakeSource, rend *fakeRenderer, snd *fakeSender) *Service {
	return NewService(src, rend, snd, zap.NewNop())
}

func TestRunMarksExactlyFetchedOrders(t *testing.T) {
	log := &callLog{}
	src := &fakeSource{log: log, rows: testRows()}
	rend := &fakeRenderer{log: log, path: "/tmp/report.pdf"}
	snd := &fakeSender{log: log}
	svc := newTestService(src, rend, snd)

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OrdersCount != 3 {
		t.Fatalf("expected 3 orders, got %d", res.OrdersCount)
	}
	if res.DocumentPath != "/tmp/report.pdf" {
		t.Fatalf("unexpected document path %q", res.DocumentPath)
	}

	expected := []string{"fetch", "render", "send", "mark"}
	got := log.snapshot()
	if len(got) != len(expected) {
		t.Fatalf("expected calls %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected calls %v, got %v", expected, got)
		}
	}

	if len(src.marked) != 1 {
		t.Fatalf("expected one mark call, got %d", len(src.marked))
	}
	ids := src.marked[0]
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("expected ids [1 2 3], got %v", ids)
	}
}

func TestRunEmptyIsNothingToReport(t *testing.T) {
	log := &callLog{}
	src := &fakeSource{log: log}
	rend := &fakeRenderer{log: log, path: "/tmp/report.pdf"}
	snd := &fakeSender{log: log}
	svc := newTestService(src, rend, snd)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, ErrNothingToReport) {
		t.Fatalf("expected ErrNothingToReport, got %v", err)
	}
	if log.count("render") != 0 || log.count("send") != 0 || log.count("mark") != 0 {
		t.Fatalf("no side effects expected on empty fetch, calls: %v", log.snapshot())
	}
}

func TestRunRejectsConcurrentTriggers(t *testing.T) {
	log := &callLog{}
	src := &fakeSource{log: log, rows: testRows()}
	rend := &fakeRenderer{
		log:     log,
		path:    "/tmp/report.pdf",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	snd := &fakeSender{log: log}
	svc := newTestService(src, rend, snd)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()
	<-rend.entered

	// Concurrent triggers while the first run is mid-pipeline fail fast
	// with zero side effects.
	for i := 0; i < 3; i++ {
		if _, err := svc.Run(context.Background()); !errors.Is(err, ErrBusy) {
			t.Fatalf("expected ErrBusy, got %v", err)
		}
	}
	if got := log.count("fetch"); got != 1 {
		t.Fatalf("rejected triggers must not fetch, fetch count %d", got)
	}

	close(rend.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	rend.release = nil
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run after release should be accepted, got %v", err)
	}
}

func TestGateReleasedAfterEachStepFailure(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		step      string
		configure func(src *fakeSource, rend *fakeRenderer, snd *fakeSender)
		clear     func(src *fakeSource, rend *fakeRenderer, snd *fakeSender)
	}{
		{
			step:      "fetch",
			configure: func(src *fakeSource, _ *fakeRenderer, _ *fakeSender) { src.fetchErr = boom },
			clear:     func(src *fakeSource, _ *fakeRenderer, _ *fakeSender) { src.fetchErr = nil },
		},
		{
			step:      "render",
			configure: func(_ *fakeSource, rend *fakeRenderer, _ *fakeSender) { rend.err = boom },
			clear:     func(_ *fakeSource, rend *fakeRenderer, _ *fakeSender) { rend.err = nil },
		},
		{
			step:      "send",
			configure: func(_ *fakeSource, _ *fakeRenderer, snd *fakeSender) { snd.err = boom },
			clear:     func(_ *fakeSource, _ *fakeRenderer, snd *fakeSender) { snd.err = nil },
		},
		{
			step:      "mark",
			configure: func(src *fakeSource, _ *fakeRenderer, _ *fakeSender) { src.markErr = boom },
			clear:     func(src *fakeSource, _ *fakeRenderer, _ *fakeSender) { src.markErr = nil },
		},
	}

	for _, tc := range cases {
		t.Run(tc.step, func(t *testing.T) {
			log := &callLog{}
			src := &fakeSource{log: log, rows: testRows()}
			rend := &fakeRenderer{log: log, path: "/tmp/report.pdf"}
			snd := &fakeSender{log: log}
			svc := newTestService(src, rend, snd)
			tc.configure(src, rend, snd)

			_, err := svc.Run(context.Background())
			var stepErr *StepError
			if !errors.As(err, &stepErr) {
				t.Fatalf("expected StepError, got %v", err)
			}
			if stepErr.Step != tc.step {
				t.Fatalf("expected step %q, got %q", tc.step, stepErr.Step)
			}

			// Nothing is ever marked unless the same batch was sent first.
			if tc.step != "mark" && log.count("mark") != 0 {
				t.Fatalf("mark must not run after %s failure", tc.step)
			}
			if tc.step == "render" && log.count("send") != 0 {
				t.Fatal("send must not run after render failure")
			}

			// The gate must be released on every failure path.
			tc.clear(src, rend, snd)
			if _, err := svc.Run(context.Background()); err != nil {
				t.Fatalf("run after %s failure should be accepted, got %v", tc.step, err)
			}
		})
	}
}

func TestRunDoesNotMarkWhenSendFails(t *testing.T) {
	log := &callLog{}
	src := &fakeSource{log: log, rows: testRows()}
	rend := &fakeRenderer{log: log, path: "/tmp/report.pdf"}
	snd := &fakeSender{log: log, err: errors.New("relay rejected")}
	svc := newTestService(src, rend, snd)

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected send failure")
	}
	if len(src.marked) != 0 {
		t.Fatalf("orders were marked without a delivered report: %v", src.marked)
	}

	// A retry re-fetches the same batch and can succeed.
	snd.err = nil
	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if res.OrdersCount != 3 || len(src.marked) != 1 {
		t.Fatalf("retry should mark the re-fetched batch, marked: %v", src.marked)
	}
}

func TestRenderOnlyUsesSampleData(t *testing.T) {
	log := &callLog{}
	src := &fakeSource{log: log}
	rend := &fakeRenderer{log: log, path: "/tmp/test.pdf"}
	svc := newTestService(src, rend, &fakeSender{log: log})

	res, err := svc.RenderOnly(context.Background(), RenderOptions{UseSampleData: true, Limit: 4})
	if err != nil {
		t.Fatalf("RenderOnly: %v", err)
	}
	if res.OrdersCount != 4 {
		t.Fatalf("expected 4 sample orders, got %d", res.OrdersCount)
	}
	if len(rend.gotRows) != 1 || len(rend.gotRows[0]) != 4 {
		t.Fatalf("renderer should receive the 4 sample rows, got %d calls", len(rend.gotRows))
	}
	if log.count("fetch") != 0 || log.count("review") != 0 {
		t.Fatalf("sample render must not hit the store, calls: %v", log.snapshot())
	}
	if log.count("send") != 0 || log.count("mark") != 0 {
		t.Fatalf("test render must not send or mark, calls: %v", log.snapshot())
	}
}

func TestRenderOnlyEmptySource(t *testing.T) {
	log := &callLog{}
	src := &fakeSource{log: log}
	rend := &fakeRenderer{log: log, path: "/tmp/test.pdf"}
	svc := newTestService(src, rend, &fakeSender{log: log})

	_, err := svc.RenderOnly(context.Background(), RenderOptions{})
	if !errors.Is(err, ErrNothingToReport) {
		t.Fatalf("expected ErrNothingToReport, got %v", err)
	}
	if log.count("render") != 0 {
		t.Fatal("renderer must not run on an empty result")
	}
}
