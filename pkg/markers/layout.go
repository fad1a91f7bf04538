package markers

import "image"

// A4 at 300 DPI.
const (
	PageWidth   = 2480
	PageHeight  = 3508
	PageMargin  = 100
	PageSpacing = 50

	// titleBand is the space reserved above the grid for the page title.
	titleBand = 150
	// labelReserve is subtracted from the computed cell size for the label.
	labelReserve = 100
)

// Layout places count tiles on an A4 page, perRow per row.
type Layout struct {
	PerRow     int
	Rows       int
	TileSize   int // marker edge in pixels
	TileHeight int // marker plus label strip
	LabelH     int
}

// PageLayout computes the grid for count tiles with a labelH strip each.
func PageLayout(count, perRow, labelH int) Layout {
	if perRow < 1 {
		perRow = 1
	}
	if count < 1 {
		count = 1
	}
	rows := (count + perRow - 1) / perRow

	availW := PageWidth - 2*PageMargin - (perRow-1)*PageSpacing
	availH := PageHeight - 2*PageMargin - (rows-1)*PageSpacing
	size := min(availW/perRow, availH/rows) - labelReserve
	if size < 1 {
		size = 1
	}

	return Layout{
		PerRow:     perRow,
		Rows:       rows,
		TileSize:   size,
		TileHeight: size + labelH,
		LabelH:     labelH,
	}
}

// Position returns the top-left corner of the i-th placed tile.
func (l Layout) Position(i int) image.Point {
	col := i % l.PerRow
	row := i / l.PerRow
	return image.Pt(
		PageMargin+col*(l.TileSize+PageSpacing),
		PageMargin+titleBand+row*(l.TileHeight+PageSpacing),
	)
}

// Rect returns the destination rectangle of the i-th placed tile.
func (l Layout) Rect(i int) image.Rectangle {
	p := l.Position(i)
	return image.Rect(p.X, p.Y, p.X+l.TileSize, p.Y+l.TileHeight)
}
