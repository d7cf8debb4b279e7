package report

// geometry captures the vertical page budget in millimeters. The renderer
// draws exactly what the planner allocated, so the two must agree on these
// numbers; defaultGeometry is the single source of truth.
type geometry struct {
	firstTop  float64 // y where rows start after the full first-page header
	contTop   float64 // y where rows start after a continuation header
	bottom    float64 // lowest y a row may occupy (page height - margin - footer)
	rowH      float64 // height of the four-column row line
	itemLineH float64 // height of one wrapped items-summary line
	rowGap    float64 // separator plus breathing room after a block
	summaryH  float64 // separator plus the total-revenue line
}

func defaultGeometry() geometry {
	return geometry{
		firstTop:  70,
		contTop:   40,
		bottom:    272,
		rowH:      6,
		itemLineH: 5,
		rowGap:    4,
		summaryH:  18,
	}
}

// blockHeight is the full vertical cost of one record: its four-column row,
// every wrapped items line, and the trailing gap. A block is never split
// across pages, so the identifying columns always sit on the same page as
// their items summary.
func (g geometry) blockHeight(itemLines int) float64 {
	if itemLines < 1 {
		itemLines = 1
	}
	return g.rowH + float64(itemLines)*g.itemLineH + g.rowGap
}

// pagePlan assigns record indexes to pages. Footers are not part of the
// plan; the page total is stamped by the renderer once the last page is
// known.
type pagePlan struct {
	pages            [][]int
	summaryOnNewPage bool
}

func (p pagePlan) pageCount() int {
	n := len(p.pages)
	if p.summaryOnNewPage {
		n++
	}
	return n
}

// planPages lays records onto pages front to back. lineCounts holds the
// measured number of wrapped items lines per record. A record whose block
// does not fit in the remaining space opens a new page, unless it is the
// first block on its page, in which case it stays and overflows rather
// than looping forever.
func planPages(lineCounts []int, g geometry) pagePlan {
	pages := [][]int{nil}
	y := g.firstTop

	for i, lc := range lineCounts {
		h := g.blockHeight(lc)
		if y+h > g.bottom && len(pages[len(pages)-1]) > 0 {
			pages = append(pages, nil)
			y = g.contTop
		}
		last := len(pages) - 1
		pages[last] = append(pages[last], i)
		y += h
	}

	return pagePlan{
		pages:            pages,
		summaryOnNewPage: y+g.summaryH > g.bottom,
	}
}
