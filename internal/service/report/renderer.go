package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/riadkhan60/chickenhut/internal/domain/models"
	"github.com/riadkhan60/chickenhut/pkg/localtime"
)

// Page geometry in millimeters, A4 portrait.
const (
	leftMargin   = 15.0
	rightEdge    = 195.0
	contentWidth = rightEdge - leftMargin
	itemsIndent  = 6.0
	itemsWidth   = contentWidth - itemsIndent - 6

	colIDX, colIDW       = 15.0, 30.0
	colTableX, colTableW = 55.0, 30.0
	colTotalX, colTotalW = 95.0, 30.0
	colTimeX, colTimeW   = 130.0, 65.0
)

// PDFRenderer builds the paginated orders report. Layout is planned first
// (planPages), then drawn, so no record block is ever split across a page
// break; the "Page X of Y" footers resolve Y only when the document closes.
type PDFRenderer struct {
	outDir string
	zone   *localtime.Zone
}

func NewPDFRenderer(outDir string, zone *localtime.Zone) *PDFRenderer {
	return &PDFRenderer{outDir: outDir, zone: zone}
}

// Render writes the report for the given rows, ordered ascending by
// completion time, and returns the file path.
func (r *PDFRenderer) Render(rows []models.ReportRow) (string, error) {
	if len(rows) == 0 {
		return "", errors.New("no rows to render")
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir %s: %w", r.outDir, err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(leftMargin, leftMargin, leftMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	geom := defaultGeometry()

	// Measure item summaries with the font they will be drawn in.
	pdf.SetFont("Helvetica", "I", 10)
	lineCounts := make([]int, len(rows))
	for i, row := range rows {
		lineCounts[i] = len(pdf.SplitText("Items: "+row.ItemsSummary, itemsWidth))
	}
	plan := planPages(lineCounts, geom)

	for pi, page := range plan.pages {
		pdf.AddPage()
		r.drawHeader(pdf, pi == 0, len(rows))
		if pi == 0 {
			pdf.SetY(geom.firstTop)
		} else {
			pdf.SetY(geom.contTop)
		}
		for _, ri := range page {
			r.drawBlock(pdf, geom, rows[ri], lineCounts[ri], ri == len(rows)-1)
		}
	}

	if plan.summaryOnNewPage {
		pdf.AddPage()
		r.drawHeader(pdf, false, len(rows))
		pdf.SetY(geom.contTop)
	}
	drawSummary(pdf, sumTotals(rows))

	path := filepath.Join(r.outDir, fmt.Sprintf("orders_report_%s.pdf", r.zone.DateString(time.Now())))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed writing report pdf: %w", err)
	}
	return path, nil
}

func (r *PDFRenderer) drawHeader(pdf *gofpdf.Fpdf, first bool, orderCount int) {
	pdf.SetY(leftMargin)
	if first {
		pdf.SetFont("Helvetica", "B", 22)
		pdf.CellFormat(0, 10, "Restaurant Orders Report", "", 1, "C", false, 0, "")
		now := r.zone.Now()
		pdf.SetFont("Helvetica", "", 14)
		pdf.CellFormat(0, 8, "Date: "+now.Format("January 2, 2006"), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 7, "Generated at: "+now.Format("03:04:05 PM"), "", 1, "C", false, 0, "")
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "BU", 14)
		pdf.CellFormat(0, 8, fmt.Sprintf("Completed Orders (%d orders)", orderCount), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	} else {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 9, "Restaurant Orders Report - Continued", "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	hy := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(colIDX, hy)
	pdf.CellFormat(colIDW, 6, "Order ID", "", 0, "L", false, 0, "")
	pdf.SetXY(colTableX, hy)
	pdf.CellFormat(colTableW, 6, "Table", "", 0, "C", false, 0, "")
	pdf.SetXY(colTotalX, hy)
	pdf.CellFormat(colTotalW, 6, "Total", "", 0, "R", false, 0, "")
	pdf.SetXY(colTimeX, hy)
	pdf.CellFormat(colTimeW, 6, "Completed Time", "", 0, "C", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.4)
	pdf.Line(leftMargin, hy+7, rightEdge, hy+7)
}

func (r *PDFRenderer) drawBlock(pdf *gofpdf.Fpdf, geom geometry, row models.ReportRow, itemLines int, last bool) {
	y := pdf.GetY()

	label := "p" // take-away parcel
	if row.TableNumber != nil {
		label = strconv.Itoa(*row.TableNumber)
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(colIDX, y)
	pdf.CellFormat(colIDW, geom.rowH, strconv.FormatInt(row.OrderID, 10), "", 0, "L", false, 0, "")
	pdf.SetXY(colTableX, y)
	pdf.CellFormat(colTableW, geom.rowH, label, "", 0, "C", false, 0, "")
	pdf.SetXY(colTotalX, y)
	pdf.CellFormat(colTotalW, geom.rowH, strconv.FormatInt(row.Total.IntPart(), 10), "", 0, "R", false, 0, "")
	pdf.SetXY(colTimeX, y)
	pdf.CellFormat(colTimeW, geom.rowH, r.zone.Stamp(row.CompletedAt), "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetXY(leftMargin+itemsIndent, y+geom.rowH)
	pdf.MultiCell(itemsWidth, geom.itemLineH, "Items: "+row.ItemsSummary, "", "L", false)

	blockEnd := y + geom.blockHeight(itemLines)
	if !last {
		sepY := blockEnd - geom.rowGap/2
		pdf.SetDrawColor(221, 221, 221)
		pdf.SetLineWidth(0.2)
		pdf.Line(leftMargin, sepY, rightEdge, sepY)
	}
	pdf.SetY(blockEnd)
}

func drawSummary(pdf *gofpdf.Fpdf, total int64) {
	y := pdf.GetY() + 2
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.4)
	pdf.Line(leftMargin, y, rightEdge, y)
	pdf.SetY(y + 4)
	pdf.SetX(leftMargin)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentWidth, 8, fmt.Sprintf("Total Revenue: %d tk", total), "", 1, "R", false, 0, "")
}

// sumTotals adds order totals exactly, then truncates to whole currency
// units for display.
func sumTotals(rows []models.ReportRow) int64 {
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.Total)
	}
	return sum.IntPart()
}
