package pinpoint

import "strings"

// Zero-width Unicode characters composing the evidence marker. They are
// invisible, survive markdown-to-ANSI conversion as ordinary text, and can
// be detected in the settled render without disturbing layout.
const (
	zws = "\u200B" // Zero-Width Space
	zwj = "\u200D" // Zero-Width Joiner
	wj  = "\u2060" // Word Joiner
)

// Evidence markers delimit exactly one highlighted span at a time. The
// sequences are the marker contract shared with the render surface: any
// element wrapping a match is identifiable by these alone.
const (
	EvidenceStartMarker = zws + wj // U+200B U+2060
	EvidenceEndMarker   = wj + zws // U+2060 U+200B
)

// IsMarkerRune reports whether r is one of the marker characters.
func IsMarkerRune(r rune) bool {
	return r == '\u200B' || r == '\u200D' || r == '\u2060'
}

// StripMarkers removes all marker characters from a string, returning the
// text exactly as it was before injection.
func StripMarkers(s string) string {
	if !strings.ContainsAny(s, zws+zwj+wj) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !IsMarkerRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MarkerSpan is the location of the evidence marker in rendered output.
// Columns are rune columns in the cleaned (non-decorated) line, the same
// coordinate space the render surface scrolls and highlights in.
type MarkerSpan struct {
	StartLine int
	EndLine   int
	StartCol  int
	EndCol    int
}

// FindMarkerSpan scans rendered lines for the evidence marker pair and
// returns its visual span. The cleaner removes non-visible decoration
// (ANSI sequences, UI tags) before column arithmetic; marker runes are
// excluded from columns as well.
//
// The span may cross lines when the renderer wrapped the highlighted text.
// Returns ok=false when no start marker is present in the render.
func FindMarkerSpan(lines []string, cleaner LineCleaner) (MarkerSpan, bool) {
	if cleaner == nil {
		cleaner = LineCleanerFunc(func(s string) string { return s })
	}

	span := MarkerSpan{StartLine: -1, EndLine: -1}

	for lineIdx, line := range lines {
		if span.StartLine < 0 {
			if idx := strings.Index(line, EvidenceStartMarker); idx >= 0 {
				span.StartLine = lineIdx
				span.StartCol = visualColumn(line[:idx], cleaner)
			}
		}
		if span.StartLine >= 0 {
			searchFrom := 0
			if lineIdx == span.StartLine {
				searchFrom = strings.Index(line, EvidenceStartMarker) + len(EvidenceStartMarker)
			}
			if idx := strings.Index(line[searchFrom:], EvidenceEndMarker); idx >= 0 {
				span.EndLine = lineIdx
				span.EndCol = visualColumn(line[:searchFrom+idx], cleaner)
				return span, true
			}
		}
	}

	if span.StartLine < 0 {
		return MarkerSpan{}, false
	}

	// Start marker without a matching end: highlight to end of start line.
	span.EndLine = span.StartLine
	span.EndCol = visualColumn(lines[span.StartLine], cleaner)
	return span, true
}

// CountMarkers reports how many start markers are present in the render,
// for the diagnostic logged when a marker never settles.
func CountMarkers(lines []string) int {
	n := 0
	for _, line := range lines {
		n += strings.Count(line, EvidenceStartMarker)
	}
	return n
}

// visualColumn counts the visible rune columns in the prefix, excluding
// decoration removed by the cleaner and the marker runes themselves.
func visualColumn(prefix string, cleaner LineCleaner) int {
	cleaned := cleaner.Clean(prefix)
	col := 0
	for _, r := range cleaned {
		if !IsMarkerRune(r) {
			col++
		}
	}
	return col
}
