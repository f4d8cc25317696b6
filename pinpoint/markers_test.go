package pinpoint

import (
	"strings"
	"testing"
)

func TestStripMarkersRoundTrip(t *testing.T) {
	original := "The lake is deep and cold."
	marked, ok := InjectPlain(original, 4, 16)
	if !ok {
		t.Fatal("injection failed")
	}
	if marked == original {
		t.Fatal("injection should change the string")
	}
	if got := StripMarkers(marked); got != original {
		t.Errorf("strip(inject(x)) = %q, want %q", got, original)
	}
}

func TestStripMarkersNoMarkers(t *testing.T) {
	s := "plain text, no zero-width characters"
	if got := StripMarkers(s); got != s {
		t.Errorf("StripMarkers changed marker-free text: %q", got)
	}
}

func TestFindMarkerSpanSingleLine(t *testing.T) {
	lines := []string{
		"first line",
		"abc" + EvidenceStartMarker + "def" + EvidenceEndMarker + "ghi",
		"last line",
	}

	span, ok := FindMarkerSpan(lines, LineCleanerFunc(StripMarkers))
	if !ok {
		t.Fatal("expected to find the marker")
	}
	if span.StartLine != 1 || span.EndLine != 1 {
		t.Errorf("lines = %d..%d, want 1..1", span.StartLine, span.EndLine)
	}
	if span.StartCol != 3 || span.EndCol != 6 {
		t.Errorf("cols = %d..%d, want 3..6", span.StartCol, span.EndCol)
	}
}

func TestFindMarkerSpanCrossLine(t *testing.T) {
	// renderer wrapped the highlighted text across two lines
	lines := []string{
		"quote " + EvidenceStartMarker + "starts here",
		"and ends" + EvidenceEndMarker + " mid-line",
	}

	span, ok := FindMarkerSpan(lines, LineCleanerFunc(StripMarkers))
	if !ok {
		t.Fatal("expected to find the marker")
	}
	if span.StartLine != 0 || span.EndLine != 1 {
		t.Errorf("lines = %d..%d, want 0..1", span.StartLine, span.EndLine)
	}
	if span.StartCol != 6 {
		t.Errorf("start col = %d, want 6", span.StartCol)
	}
	if span.EndCol != 8 {
		t.Errorf("end col = %d, want 8", span.EndCol)
	}
}

func TestFindMarkerSpanStartWithoutEnd(t *testing.T) {
	lines := []string{"abc" + EvidenceStartMarker + "defgh"}

	span, ok := FindMarkerSpan(lines, LineCleanerFunc(StripMarkers))
	if !ok {
		t.Fatal("a lone start marker should still produce a span")
	}
	if span.StartLine != 0 || span.EndLine != 0 {
		t.Errorf("lines = %d..%d, want 0..0", span.StartLine, span.EndLine)
	}
	if span.StartCol != 3 || span.EndCol != 8 {
		t.Errorf("cols = %d..%d, want 3..8 (to end of line)", span.StartCol, span.EndCol)
	}
}

func TestFindMarkerSpanAbsent(t *testing.T) {
	if _, ok := FindMarkerSpan([]string{"no", "markers"}, nil); ok {
		t.Error("found a span in marker-free lines")
	}
}

func TestFindMarkerSpanIgnoresDecoration(t *testing.T) {
	// ANSI styling before the marker must not count toward columns
	cleaner := LineCleanerFunc(func(s string) string {
		s = strings.ReplaceAll(s, "\x1b[1m", "")
		s = strings.ReplaceAll(s, "\x1b[0m", "")
		return StripMarkers(s)
	})
	lines := []string{"\x1b[1mab\x1b[0mc" + EvidenceStartMarker + "d" + EvidenceEndMarker}

	span, ok := FindMarkerSpan(lines, cleaner)
	if !ok {
		t.Fatal("expected to find the marker")
	}
	if span.StartCol != 3 || span.EndCol != 4 {
		t.Errorf("cols = %d..%d, want 3..4", span.StartCol, span.EndCol)
	}
}

func TestCountMarkers(t *testing.T) {
	lines := []string{
		"one " + EvidenceStartMarker + "here" + EvidenceEndMarker,
		"none",
		"two " + EvidenceStartMarker + "a" + EvidenceEndMarker + " " + EvidenceStartMarker + "b" + EvidenceEndMarker,
	}
	if got := CountMarkers(lines); got != 3 {
		t.Errorf("CountMarkers = %d, want 3", got)
	}
}
