// Package display holds the user's display preferences as an immutable value
// handed to renderers and to layout parameter construction.
package display

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/metcalfc/folio/internal/layout"
)

// ColumnGap is the horizontal space between the columns of a spread.
const ColumnGap = 40.0

// Settings are a user's display preferences. Methods return modified
// copies; a Settings value is never changed in place.
type Settings struct {
	Background string  `yaml:"background" json:"background" validate:"required"`
	Foreground string  `yaml:"foreground" json:"foreground" validate:"required"`
	FontFamily string  `yaml:"font_family" json:"font_family" validate:"required"`
	FontSize   float64 `yaml:"font_size" json:"font_size" validate:"gte=6,lte=96"`
}

func Default() Settings {
	return Settings{
		Background: "white",
		Foreground: "black",
		FontFamily: "Arial",
		FontSize:   16,
	}
}

func (s Settings) WithFontSize(px float64) Settings {
	s.FontSize = px
	return s
}

func (s Settings) WithColors(background, foreground string) Settings {
	s.Background = background
	s.Foreground = foreground
	return s
}

func (s Settings) WithFontFamily(family string) Settings {
	s.FontFamily = family
	return s
}

func (s Settings) Validate() error {
	if _, err := ParseColor(s.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if _, err := ParseColor(s.Foreground); err != nil {
		return fmt.Errorf("foreground: %w", err)
	}
	if s.FontFamily == "" {
		return fmt.Errorf("font family is empty")
	}
	if s.FontSize < layout.MinFontSize {
		return fmt.Errorf("font size %v below %v", s.FontSize, layout.MinFontSize)
	}
	return nil
}

// Params derives layout parameters for a viewport of the given pixel size
// split into columns. The result may be invalid for degenerate viewports;
// callers that take sizes from window events should Clamp it.
func (s Settings) Params(width, height float64, columns int) layout.Params {
	if columns < 1 {
		columns = 1
	}
	colWidth := (width - ColumnGap*float64(columns-1)) / float64(columns)
	return layout.Params{
		ColumnWidth:  colWidth,
		ColumnHeight: height,
		FontSize:     s.FontSize,
		Columns:      columns,
	}
}

var named = map[string]color.NRGBA{
	"white":     {0xff, 0xff, 0xff, 0xff},
	"black":     {0x00, 0x00, 0x00, 0xff},
	"sepia":     {0xf4, 0xec, 0xd8, 0xff},
	"gray":      {0x80, 0x80, 0x80, 0xff},
	"lightgray": {0xd3, 0xd3, 0xd3, 0xff},
	"darkgray":  {0x33, 0x33, 0x33, 0xff},
	"beige":     {0xf5, 0xf5, 0xdc, 0xff},
	"navy":      {0x00, 0x00, 0x80, 0xff},
	"brown":     {0x5b, 0x46, 0x36, 0xff},
}

// ParseColor accepts "#rgb", "#rrggbb" or one of a few names.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
