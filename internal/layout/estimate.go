package layout

import (
	"math"
	"unicode"

	"github.com/mattn/go-runewidth"
)

const (
	// CharWidthFactor approximates the average glyph advance as a fraction
	// of the font size.
	CharWidthFactor = 0.55
	// ColumnPadding is the horizontal space in pixels a column loses to
	// margins before text starts.
	ColumnPadding = 10.0
)

// CharsPerLine returns how many average-width characters fit on one line.
func CharsPerLine(fontSize, columnWidth float64) int {
	avg := fontSize * CharWidthFactor
	if avg <= 0 {
		return 1
	}
	return max(1, int(math.Floor((columnWidth-ColumnPadding)/avg)))
}

// EstimateLines returns the number of rendered lines text occupies in a
// column. Empty text still reserves one line.
func EstimateLines(text string, fontSize, columnWidth float64) int {
	return len(LineStarts(text, fontSize, columnWidth))
}

// LineStarts simulates greedy word wrap and returns the rune offset at which
// each line begins. The first element is always 0. Wide runes count as two
// characters; a word longer than a line is broken between runes.
func LineStarts(text string, fontSize, columnWidth float64) []int {
	return wrap([]rune(text), CharsPerLine(fontSize, columnWidth))
}

func wrap(runes []rune, perLine int) []int {
	starts := []int{0}
	width := 0
	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i == len(runes) {
			break
		}
		ws := i
		w := 0
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			w += runewidth.RuneWidth(runes[i])
			i++
		}

		switch {
		case width == 0:
		case width+1+w <= perLine:
			width += 1 + w
			continue
		default:
			starts = append(starts, ws)
			width = 0
		}

		if w <= perLine {
			width = w
			continue
		}
		// hard break an overlong word
		for j := ws; j < i; j++ {
			rw := runewidth.RuneWidth(runes[j])
			if width > 0 && width+rw > perLine {
				starts = append(starts, j)
				width = 0
			}
			width += rw
		}
	}
	return starts
}
