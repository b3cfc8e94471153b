package layout

import (
	"errors"
	"fmt"
	"math"
)

// LineSpacing is the line height as a multiple of the font size.
const LineSpacing = 1.4

// Lower bounds used when clamping user driven values.
const (
	MinFontSize     = 6.0
	MinColumnWidth  = ColumnPadding + 4*MinFontSize
	MinColumnHeight = MinFontSize * LineSpacing
	MaxColumns      = 2
)

var ErrInvalidParams = errors.New("invalid layout parameters")

// Params are the inputs of one pagination pass. Two values that compare
// equal always produce the same page map.
type Params struct {
	ColumnWidth  float64 // pixels
	ColumnHeight float64 // pixels, ignored when LinesPerColumn is set
	FontSize     float64 // pixels
	// LinesPerColumn overrides the capacity derived from ColumnHeight.
	LinesPerColumn int
	Columns        int
}

func (p Params) Validate() error {
	switch {
	case !(p.ColumnWidth > 0):
		return fmt.Errorf("%w: column width %v", ErrInvalidParams, p.ColumnWidth)
	case !(p.FontSize > 0):
		return fmt.Errorf("%w: font size %v", ErrInvalidParams, p.FontSize)
	case p.LinesPerColumn < 0:
		return fmt.Errorf("%w: lines per column %d", ErrInvalidParams, p.LinesPerColumn)
	case p.LinesPerColumn == 0 && !(p.ColumnHeight > 0):
		return fmt.Errorf("%w: column height %v", ErrInvalidParams, p.ColumnHeight)
	case p.Columns < 1 || p.Columns > MaxColumns:
		return fmt.Errorf("%w: %d columns", ErrInvalidParams, p.Columns)
	}
	return nil
}

// Lines returns the capacity of one column in base lines, at least 1.
func (p Params) Lines() int {
	if p.LinesPerColumn > 0 {
		return p.LinesPerColumn
	}
	if !(p.FontSize > 0) {
		return 1
	}
	return max(1, int(math.Floor(p.ColumnHeight/(p.FontSize*LineSpacing))))
}

// Clamp returns the nearest valid parameters. NaN and non-positive sizes are
// raised to the minimums.
func (p Params) Clamp() Params {
	p.ColumnWidth = atLeast(p.ColumnWidth, MinColumnWidth)
	p.FontSize = atLeast(p.FontSize, MinFontSize)
	if p.LinesPerColumn < 0 {
		p.LinesPerColumn = 0
	}
	if p.LinesPerColumn == 0 {
		p.ColumnHeight = atLeast(p.ColumnHeight, MinColumnHeight)
	}
	p.Columns = min(max(p.Columns, 1), MaxColumns)
	return p
}

func atLeast(v, lo float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	return v
}

func (p Params) String() string {
	return fmt.Sprintf("%gx%g font=%g lines=%d columns=%d",
		p.ColumnWidth, p.ColumnHeight, p.FontSize, p.Lines(), p.Columns)
}
