package tview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/boolean-maybe/pinpoint/pinpoint"
	"github.com/boolean-maybe/pinpoint/util"
)

const evidenceRegionID = "evidence"

// pulseDuration bounds the highlight pulse after a successful jump.
const pulseDuration = 900 * time.Millisecond

// EvidenceView is a TextView-based surface for the evidence panel. It
// renders the session's display payload, locates the zero-width marker in
// the settled render, scrolls it centered, and pulses the highlight.
type EvidenceView struct {
	*tview.TextView

	app     *tview.Application
	session *pinpoint.EvidenceSession

	markdownRenderer pinpoint.Renderer
	plainRenderer    pinpoint.Renderer

	// ansiConverter is optional. If nil, falls back to tview.TranslateANSI.
	ansiConverter *util.AnsiConverter

	policy pinpoint.RetryPolicy
	log    zerolog.Logger

	mu           sync.Mutex
	displayLines []string
	span         pinpoint.MarkerSpan
	spanOK       bool
	jumpCancel   context.CancelFunc
	pulseTimer   *time.Timer
}

// NewEvidenceView creates an evidence surface bound to app and session.
func NewEvidenceView(app *tview.Application, session *pinpoint.EvidenceSession, log zerolog.Logger) *EvidenceView {
	textView := tview.NewTextView()
	textView.SetBorder(false)
	textView.SetDynamicColors(true)
	textView.SetRegions(true)
	textView.SetWrap(false)
	textView.SetWordWrap(false)

	return &EvidenceView{
		TextView:         textView,
		app:              app,
		session:          session,
		markdownRenderer: pinpoint.NewANSIRenderer(),
		plainRenderer:    pinpoint.PlainRenderer{},
		policy:           pinpoint.DefaultRetryPolicy,
		log:              log,
	}
}

// SetAnsiConverter configures optional ANSI->tview conversion. If nil,
// tview.TranslateANSI is used.
func (v *EvidenceView) SetAnsiConverter(c *util.AnsiConverter) *EvidenceView {
	v.ansiConverter = c
	return v
}

// SetMarkdownRenderer switches the reader-view renderer, e.g. between
// light and dark styles.
func (v *EvidenceView) SetMarkdownRenderer(r pinpoint.Renderer) *EvidenceView {
	v.markdownRenderer = r
	v.ShowDisplay(v.session.Display())
	return v
}

// SetRetryPolicy overrides the marker settle policy.
func (v *EvidenceView) SetRetryPolicy(p pinpoint.RetryPolicy) *EvidenceView {
	v.policy = p
	return v
}

// ShowFact resolves factID through the session and renders the result.
// Meant to be called off the UI goroutine; the render is queued.
func (v *EvidenceView) ShowFact(ctx context.Context, factID string, neighbors []string) error {
	display, err := v.session.ShowFact(ctx, factID, neighbors)
	if err != nil {
		return err
	}
	v.app.QueueUpdateDraw(func() {
		v.ShowDisplay(display)
	})
	return nil
}

// SetRepresentation switches between reader and raw views and re-renders.
func (v *EvidenceView) SetRepresentation(rep pinpoint.Representation) {
	v.session.SetRepresentation(rep)
	v.ShowDisplay(v.session.Display())
}

// ShowDisplay renders a display payload into the TextView. When the
// payload carries an injected marker, the scroll-to-evidence sequence is
// started in the background.
func (v *EvidenceView) ShowDisplay(display pinpoint.EvidenceDisplay) {
	renderer := v.plainRenderer
	if display.Representation == pinpoint.RepresentationMarkdown {
		renderer = v.markdownRenderer
	}

	res, err := renderer.Render(display.Content)
	if err != nil {
		v.log.Warn().Err(err).Msg("render failed, using fallback output")
	}

	// Marker position is resolved against the raw render, before the
	// markers are dropped and tag conversion shifts positions around.
	span, spanOK := pinpoint.FindMarkerSpan(res.Lines, res.Cleaner)

	// The display copy drops the zero-width markers and keeps only region
	// tags. Literal brackets in the document (citation markers and the
	// like) are escaped so the TextView shows them instead of eating them
	// as tags.
	joined := pinpoint.StripMarkers(strings.Join(res.Lines, "\n"))
	var converted string
	if v.ansiConverter != nil {
		converted = v.ansiConverter.Convert(joined)
	} else {
		converted = tview.TranslateANSI(tview.Escape(joined))
	}

	v.mu.Lock()
	v.displayLines = strings.Split(converted, "\n")
	v.span = span
	v.spanOK = spanOK
	v.cancelJumpLocked()
	v.mu.Unlock()

	v.updateTextViewContent()

	if display.Injected && v.session.JumpPhase() == pinpoint.JumpInjected {
		v.startJump(display, len(res.Lines), pinpoint.CountMarkers(res.Lines))
	}
}

func (v *EvidenceView) updateTextViewContent() {
	v.mu.Lock()
	lines := v.displayLines
	span := v.span
	spanOK := v.spanOK
	v.mu.Unlock()

	if len(lines) == 0 {
		v.SetText("")
		v.Highlight()
		return
	}

	var builder strings.Builder
	for i, line := range lines {
		if spanOK && i >= span.StartLine && i <= span.EndLine {
			startCol := 0
			if i == span.StartLine {
				startCol = span.StartCol
			}
			endCol := -1
			if i == span.EndLine {
				endCol = span.EndCol
			}
			line = insertRegionTags(line, startCol, endCol, evidenceRegionID)
		}
		builder.WriteString(line)
		if i < len(lines)-1 {
			builder.WriteString("\n")
		}
	}

	v.SetText(builder.String())
	v.Highlight()
}

// startJump runs the settle-probe-fallback sequence off the UI goroutine.
// renderLines and markerCount feed the diagnostic when the marker never
// appears in the settled render.
func (v *EvidenceView) startJump(display pinpoint.EvidenceDisplay, renderLines, markerCount int) {
	ctx, cancel := context.WithCancel(context.Background())
	v.mu.Lock()
	v.jumpCancel = cancel
	v.mu.Unlock()

	hop := func(fn func()) {
		go v.app.QueueUpdateDraw(fn)
	}
	probe := func() bool {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.spanOK
	}

	go func() {
		defer cancel()
		if pinpoint.WaitUntil(ctx, v.policy, nil, hop, probe) {
			v.app.QueueUpdateDraw(func() {
				v.scrollToMarker()
			})
			return
		}
		if ctx.Err() != nil {
			return
		}
		v.log.Warn().
			Str("representation", display.Representation.String()).
			Str("match", display.Match.Type.String()).
			Int("render_lines", renderLines).
			Int("markers", markerCount).
			Bool("injected", display.Injected).
			Msg("marker never appeared in settled render")
	}()
}

// scrollToMarker centers the marker line, highlights the evidence region,
// and schedules the pulse to fade. Runs on the UI goroutine.
func (v *EvidenceView) scrollToMarker() {
	v.mu.Lock()
	span := v.span
	spanOK := v.spanOK
	v.mu.Unlock()
	if !spanOK {
		return
	}

	_, _, _, height := v.GetInnerRect()
	row := span.StartLine - height/2
	if row < 0 {
		row = 0
	}
	v.ScrollTo(row, 0)
	v.Highlight(evidenceRegionID)
	v.session.MarkerSeen()

	// The highlight is a pulse, not a permanent inversion: it fades after
	// a bounded interval while the region tags stay in the text.
	v.mu.Lock()
	if v.pulseTimer != nil {
		v.pulseTimer.Stop()
	}
	v.pulseTimer = time.AfterFunc(pulseDuration, func() {
		v.app.QueueUpdateDraw(func() {
			v.Highlight()
		})
	})
	v.mu.Unlock()
}

// cancelJumpLocked stops an in-progress jump sequence. Caller holds mu.
func (v *EvidenceView) cancelJumpLocked() {
	if v.jumpCancel != nil {
		v.jumpCancel()
		v.jumpCancel = nil
	}
	if v.pulseTimer != nil {
		v.pulseTimer.Stop()
		v.pulseTimer = nil
	}
}

// Close stops background work.
func (v *EvidenceView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelJumpLocked()
}

// insertRegionTags wraps the visible columns [startCol, endCol) of line in
// a tview region. Converter-emitted color tags pass through without
// counting toward columns; bracket-escaped literals (the line must have
// gone through tview.Escape, so "[12]" arrives as "[12[]") count as the
// columns they display. endCol < 0 means to end of line.
func insertRegionTags(line string, startCol, endCol int, regionID string) string {
	if startCol < 0 || (endCol >= 0 && endCol <= startCol) {
		return line
	}

	runes := []rune(line)
	var builder strings.Builder
	col := 0
	insertedStart := false
	insertedEnd := false
	startTag := `["` + regionID + `"]`
	endTag := `[""]`

	for i := 0; i < len(runes); {
		if runes[i] == '[' {
			tagEnd := findTagEnd(runes, i)
			if tagEnd > i {
				builder.WriteString(string(runes[i : tagEnd+1]))
				i = tagEnd + 1
				continue
			}
		}

		if !insertedStart && col >= startCol {
			builder.WriteString(startTag)
			insertedStart = true
		}
		if !insertedEnd && endCol >= 0 && col >= endCol {
			builder.WriteString(endTag)
			insertedEnd = true
		}

		if runes[i] == '[' {
			// escaped literal: copy it whole, count its display width
			if width, length := escapedRunLen(runes, i); length > 0 {
				builder.WriteString(string(runes[i : i+length]))
				i += length
				col += width
				continue
			}
		}

		builder.WriteRune(runes[i])
		i++
		col++
	}

	if !insertedStart {
		if startCol <= col {
			builder.WriteString(startTag)
			insertedStart = true
		} else {
			return line
		}
	}
	if !insertedEnd {
		builder.WriteString(endTag)
	}
	return builder.String()
}

// escapedRunLen matches a bracket-escaped literal produced by
// tview.Escape, e.g. "[12[]" displaying as "[12]". Returns the display
// width and rune length of the run, or zeros when runes[start:] does not
// begin one.
func escapedRunLen(runes []rune, start int) (width, length int) {
	i := start + 1
	for i < len(runes) && isEscapeBodyRune(runes[i]) {
		i++
	}
	if i == start+1 {
		return 0, 0
	}
	j := i
	for j < len(runes) && runes[j] == '[' {
		j++
	}
	if j == i || j >= len(runes) || runes[j] != ']' {
		return 0, 0
	}
	length = j - start + 1
	// the escape adds one '[' that does not display
	return length - 1, length
}

func isEscapeBodyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(`_,;: -."#`, r)
}

func findTagEnd(runes []rune, start int) int {
	for i := start + 1; i < len(runes); i++ {
		if runes[i] == ']' {
			return i
		}
		if runes[i] == '[' {
			return -1
		}
	}
	return -1
}
