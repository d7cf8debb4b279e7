package report

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riadkhan60/chickenhut/internal/domain/models"
)

// SampleRows fabricates plausible completed orders for test-pdf renders.
func SampleRows(count int) []models.ReportRow {
	if count <= 0 {
		count = 5
	}

	now := time.Now()
	rows := make([]models.ReportRow, 0, count)
	for i := 1; i <= count; i++ {
		completed := now.Add(-time.Duration(count-i) * 30 * time.Minute)

		var table *int
		if i%4 != 0 { // every fourth order is a take-away parcel
			n := rand.Intn(20) + 1
			table = &n
		}

		rows = append(rows, models.ReportRow{
			OrderID:     int64(1000 + i),
			TableNumber: table,
			Total:       decimal.NewFromFloat(500 + rand.Float64()*1000).Round(2),
			CreatedAt:   completed.Add(-30 * time.Minute),
			CompletedAt: completed,
			ItemsSummary: fmt.Sprintf(
				"%dx Chicken Burger (itm-no:101), %dx French Fries (itm-no:201), %dx Coke (itm-no:301)",
				rand.Intn(3)+1, rand.Intn(2)+1, rand.Intn(2)+1),
		})
	}
	return rows
}
