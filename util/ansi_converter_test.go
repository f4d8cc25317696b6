package util

import "testing"

func TestConvertDisabled(t *testing.T) {
	c := NewAnsiConverter(false)
	in := "\x1b[1mbold\x1b[0m"
	if got := c.Convert(in); got != in {
		t.Errorf("disabled converter changed input: %q", got)
	}
}

func TestConvertBasicAttributes(t *testing.T) {
	c := NewAnsiConverter(true)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold on off", "\x1b[1mbold\x1b[0m plain", "[-:-:b]bold[-:-:-] plain"},
		{"empty params reset", "\x1b[1mx\x1b[m y", "[-:-:b]x[-:-:-] y"},
		{"no sequences", "plain text", "plain text"},
		{"redundant sequence collapsed", "\x1b[1m\x1b[1mx", "[-:-:b]x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Convert(tt.in); got != tt.want {
				t.Errorf("Convert(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvertEscapesLiteralBrackets(t *testing.T) {
	c := NewAnsiConverter(true)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"citation marker", "see [12] here", "see [12[] here"},
		{"styled bracket text", "\x1b[1m[note]\x1b[0m done", "[-:-:b][note[][-:-:-] done"},
		{"bracket text with spaces", "a [citation needed] b", "a [citation needed[] b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Convert(tt.in); got != tt.want {
				t.Errorf("Convert(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvert256Color(t *testing.T) {
	c := NewAnsiConverter(true)
	// 196 is a bright red in the 6x6x6 cube
	got := c.Convert("\x1b[38;5;196mred")
	want := "[" + Ansi256ToHex(196) + ":-:-]red"
	if got != want {
		t.Errorf("Convert = %q, want %q", got, want)
	}
}

func TestConvertTrueColor(t *testing.T) {
	c := NewAnsiConverter(true)
	got := c.Convert("\x1b[48;2;16;32;48mx")
	if got != "[-:#102030:-]x" {
		t.Errorf("Convert = %q", got)
	}
}

func TestConvertPassesZeroWidthRunes(t *testing.T) {
	c := NewAnsiConverter(true)
	in := "a\u200B\u2060b\x1b[1mc"
	got := c.Convert(in)
	if got != "a\u200B\u2060b[-:-:b]c" {
		t.Errorf("zero-width runes must pass through: %q", got)
	}
}

func TestAnsi256ToRGB(t *testing.T) {
	tests := []struct {
		code    int
		r, g, b int
	}{
		{0, 0, 0, 0},
		{15, 255, 255, 255},
		{16, 0, 0, 0},
		{231, 255, 255, 255},
		{232, 8, 8, 8},
		{255, 238, 238, 238},
	}
	for _, tt := range tests {
		r, g, b := Ansi256ToRGB(tt.code)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("Ansi256ToRGB(%d) = (%d, %d, %d), want (%d, %d, %d)",
				tt.code, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}
