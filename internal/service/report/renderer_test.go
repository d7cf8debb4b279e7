package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/riadkhan60/chickenhut/pkg/localtime"
)

func testZone(t *testing.T) *localtime.Zone {
	t.Helper()
	zone, err := localtime.Load("Asia/Dhaka")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return zone
}

func TestSumTotalsTruncatesForDisplay(t *testing.T) {
	// 500 + 750.50 + 1200 = 2450.50, shown as 2450 whole units.
	if got := sumTotals(testRows()); got != 2450 {
		t.Fatalf("expected total 2450, got %d", got)
	}
}

func TestRenderWritesReportFile(t *testing.T) {
	dir := t.TempDir()
	r := NewPDFRenderer(dir, testZone(t))

	path, err := r.Render(testRows())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written outside output dir: %s", path)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "orders_report_") || !strings.HasSuffix(name, ".pdf") {
		t.Fatalf("unexpected report file name %s", name)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat report: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("report file is empty")
	}
}

func TestRenderManyRowsPaginates(t *testing.T) {
	dir := t.TempDir()
	r := NewPDFRenderer(dir, testZone(t))

	if _, err := r.Render(SampleRows(60)); err != nil {
		t.Fatalf("Render 60 rows: %v", err)
	}
}

func TestRenderRejectsEmptyInput(t *testing.T) {
	r := NewPDFRenderer(t.TempDir(), testZone(t))
	if _, err := r.Render(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestRenderFailsOnUnwritableSink(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "reports")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	r := NewPDFRenderer(blocker, testZone(t))
	if _, err := r.Render(testRows()); err == nil {
		t.Fatal("expected error when the output dir cannot be created")
	}
}
