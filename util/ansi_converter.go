package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rivo/tview"
)

var sgrPattern = regexp.MustCompile(`\x1b\[([0-9;]*)m`)

// AnsiConverter rewrites ANSI SGR sequences as tview color tags. Literal
// text is bracket-escaped on the way through, so document content full of
// citation brackets like "[12]" reaches a dynamic-colors TextView as
// visible text instead of being parsed as tags.
type AnsiConverter struct {
	enabled bool
}

// NewAnsiConverter creates a converter. When enabled is false, Convert
// returns its input unchanged.
func NewAnsiConverter(enabled bool) *AnsiConverter {
	return &AnsiConverter{enabled: enabled}
}

// Convert translates ANSI SGR sequences into tview color tags, tracking
// foreground, background, and bold state across sequences. Sequences that
// do not change the effective style emit no tag.
func (c *AnsiConverter) Convert(text string) string {
	if !c.enabled {
		return text
	}

	var out strings.Builder
	last := 0
	var style, applied textStyle

	for _, m := range sgrPattern.FindAllStringSubmatchIndex(text, -1) {
		out.WriteString(tview.Escape(text[last:m[0]]))

		style.apply(text[m[2]:m[3]])
		if style != applied {
			applied = style
			out.WriteString(style.tag())
		}
		last = m[1]
	}

	out.WriteString(tview.Escape(text[last:]))
	return out.String()
}

// textStyle is the effective SGR state between sequences.
type textStyle struct {
	fg, bg string
	bold   bool
}

// apply folds one SGR parameter list into the style.
func (s *textStyle) apply(params string) {
	// an empty parameter list (ESC[m) means reset
	if params == "" {
		params = "0"
	}

	parts := strings.Split(params, ";")
	for i := 0; i < len(parts); i++ {
		code, err := strconv.Atoi(parts[i])
		if err != nil {
			continue
		}

		switch code {
		case 0:
			*s = textStyle{}
		case 1:
			s.bold = true
		case 22:
			s.bold = false
		case 38:
			s.fg, i = extendedColor(parts, i, s.fg)
		case 48:
			s.bg, i = extendedColor(parts, i, s.bg)
		case 39:
			s.fg = ""
		case 49:
			s.bg = ""
		}
	}
}

func (s textStyle) tag() string {
	fg, bg, attr := s.fg, s.bg, "-"
	if fg == "" {
		fg = "-"
	}
	if bg == "" {
		bg = "-"
	}
	if s.bold {
		attr = "b"
	}
	return "[" + fg + ":" + bg + ":" + attr + "]"
}

// extendedColor parses the 38;5;n (256-color) and 38;2;r;g;b (truecolor)
// parameter forms starting at parts[i], returning the color and the index
// of the last parameter consumed.
func extendedColor(parts []string, i int, current string) (string, int) {
	if i+2 < len(parts) && parts[i+1] == "5" {
		if code, err := strconv.Atoi(parts[i+2]); err == nil {
			return Ansi256ToHex(code), i + 2
		}
	} else if i+4 < len(parts) && parts[i+1] == "2" {
		r, _ := strconv.Atoi(parts[i+2])
		g, _ := strconv.Atoi(parts[i+3])
		b, _ := strconv.Atoi(parts[i+4])
		return fmt.Sprintf("#%02x%02x%02x", r, g, b), i + 4
	}
	return current, i
}

// Ansi256ToHex converts ANSI 256 color code to hex color.
func Ansi256ToHex(code int) string {
	r, g, b := Ansi256ToRGB(code)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Ansi256ToRGB converts ANSI 256 color code to RGB values.
func Ansi256ToRGB(code int) (r, g, b int) {
	if code < 16 {
		standardColors := [][]int{
			{0, 0, 0}, {128, 0, 0}, {0, 128, 0}, {128, 128, 0},
			{0, 0, 128}, {128, 0, 128}, {0, 128, 128}, {192, 192, 192},
			{128, 128, 128}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
			{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
		}
		if code >= 0 {
			return standardColors[code][0], standardColors[code][1], standardColors[code][2]
		}
	} else if code >= 16 && code <= 231 {
		code -= 16
		b := code % 6
		g := (code / 6) % 6
		r := code / 36
		return r * 51, g * 51, b * 51
	} else if code >= 232 && code <= 255 {
		gray := 8 + (code-232)*10
		return gray, gray, gray
	}
	return 0, 0, 0
}
