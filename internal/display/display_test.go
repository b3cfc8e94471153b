package display

import (
	"image/color"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestWithDoesNotMutate(t *testing.T) {
	s := Default()
	bigger := s.WithFontSize(24)
	if s.FontSize != 16 || bigger.FontSize != 24 {
		t.Errorf("original %v, copy %v", s.FontSize, bigger.FontSize)
	}
	dark := s.WithColors("#222", "#eeeeee")
	if s.Background != "white" || dark.Background != "#222" {
		t.Error("WithColors changed the original")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
		ok   bool
	}{
		{"default", Default(), true},
		{"hex", Default().WithColors("#f4ecd8", "#5b4636"), true},
		{"bad color", Default().WithColors("chartreuse-ish", "black"), false},
		{"tiny font", Default().WithFontSize(2), false},
		{"no family", Default().WithFontFamily(""), false},
	}
	for _, tt := range tests {
		if err := tt.s.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v", tt.name, err)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"White", color.NRGBA{255, 255, 255, 255}, true},
		{"#102030", color.NRGBA{0x10, 0x20, 0x30, 255}, true},
		{"#abc", color.NRGBA{0xaa, 0xbb, 0xcc, 255}, true},
		{"#12345", color.NRGBA{}, false},
		{"#gggggg", color.NRGBA{}, false},
		{"102030", color.NRGBA{}, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseColor(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParams(t *testing.T) {
	s := Default()
	one := s.Params(800, 600, 1)
	if one.ColumnWidth != 800 || one.ColumnHeight != 600 || one.FontSize != 16 || one.Columns != 1 {
		t.Errorf("single column params = %+v", one)
	}
	two := s.Params(840, 600, 2)
	if two.ColumnWidth != 400 || two.Columns != 2 {
		t.Errorf("two column params = %+v", two)
	}
	if err := two.Validate(); err != nil {
		t.Error(err)
	}
	if p := s.Params(800, 600, 0); p.Columns != 1 {
		t.Errorf("columns = %d, want 1", p.Columns)
	}
}
