package pinpoint

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
)

// LineCleaner returns a version of a rendered line without non-visible
// decoration. Implementations should remove things like ANSI escape
// sequences or UI markup tags.
type LineCleaner interface {
	Clean(line string) string
}

// LineCleanerFunc is a functional adapter for LineCleaner.
type LineCleanerFunc func(string) string

func (f LineCleanerFunc) Clean(line string) string { return f(line) }

// RenderResult is the rendered representation shown by the surface.
type RenderResult struct {
	Lines   []string
	Cleaner LineCleaner
}

// Renderer renders markdown into decorated lines along with a cleaner that
// can remove the decoration for marker detection and column arithmetic.
type Renderer interface {
	Render(markdown string) (RenderResult, error)
}

// ANSIStyleRenderer renders markdown to ANSI using glamour. Zero-width
// evidence markers embedded in the markdown pass through as ordinary text.
type ANSIStyleRenderer struct {
	styleName string
	wordWrap  int
}

// NewANSIRenderer creates a renderer with the dark style.
func NewANSIRenderer() *ANSIStyleRenderer {
	return NewANSIRendererWithStyle("dark")
}

// NewANSIRendererWithStyle creates a renderer with the named glamour
// standard style ("dark", "light", "notty", ...). Unknown names fall back
// to dark.
func NewANSIRendererWithStyle(styleName string) *ANSIStyleRenderer {
	switch styleName {
	case "light", "notty", "dracula", "ascii":
	default:
		styleName = "dark"
	}
	return &ANSIStyleRenderer{styleName: styleName}
}

// WithWordWrap configures word wrap (0 means no wrap).
func (r *ANSIStyleRenderer) WithWordWrap(cols int) *ANSIStyleRenderer {
	r.wordWrap = cols
	return r
}

var ansiSGRPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripANSIAndMarkers removes both ANSI escape sequences and marker runes.
func stripANSIAndMarkers(s string) string {
	s = ansiSGRPattern.ReplaceAllString(s, "")
	return StripMarkers(s)
}

func (r *ANSIStyleRenderer) Render(markdown string) (RenderResult, error) {
	fallback := RenderResult{
		Lines:   strings.Split(markdown, "\n"),
		Cleaner: LineCleanerFunc(stripANSIAndMarkers),
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.styleName),
		glamour.WithWordWrap(r.wordWrap),
	)
	if err != nil {
		return fallback, err
	}

	out, err := tr.Render(markdown)
	if err != nil {
		return fallback, err
	}

	return RenderResult{
		Lines:   strings.Split(out, "\n"),
		Cleaner: LineCleanerFunc(stripANSIAndMarkers),
	}, nil
}

// PlainRenderer renders a representation as-is, one line per source line.
// Used for the raw text view and in tests.
type PlainRenderer struct{}

func (PlainRenderer) Render(content string) (RenderResult, error) {
	return RenderResult{
		Lines:   strings.Split(content, "\n"),
		Cleaner: LineCleanerFunc(StripMarkers),
	}, nil
}
