package pinpoint

import "time"

// Representation identifies one of the interchangeable renderings of a
// source document.
type Representation int

const (
	RepresentationText Representation = iota
	RepresentationMarkdown
	RepresentationHTML
)

// String returns the wire name used by the content API ("text", "markdown", "html").
func (r Representation) String() string {
	switch r {
	case RepresentationMarkdown:
		return "markdown"
	case RepresentationHTML:
		return "html"
	default:
		return "text"
	}
}

// MatchType reports which strategy located a quote. Values are ordered from
// most to least trustworthy so callers can render distinct confidence tiers.
type MatchType int

const (
	MatchTypeNone MatchType = iota
	MatchTypeAnchor
	MatchTypeFuzzy
	MatchTypeNormalized
	MatchTypeExact
	MatchTypeStored
)

// String returns the confidence tier name ("stored", "exact", "normalized",
// "fuzzy", "anchor", "none").
func (m MatchType) String() string {
	switch m {
	case MatchTypeStored:
		return "stored"
	case MatchTypeExact:
		return "exact"
	case MatchTypeNormalized:
		return "normalized"
	case MatchTypeFuzzy:
		return "fuzzy"
	case MatchTypeAnchor:
		return "anchor"
	default:
		return "none"
	}
}

// MatchResult is the outcome of locating a quote inside a representation.
//
// Start/End are byte offsets into the specific text that was searched.
// Offsets into the raw text are not interchangeable with markdown offsets.
// Invariant: Found implies 0 <= Start < End <= len(searched text).
type MatchResult struct {
	Found bool
	Start int
	End   int
	Type  MatchType
}

// OffsetRange is a stored [Start, End) character span captured at ingestion
// time. Either bound may be stale after the source is re-fetched.
type OffsetRange struct {
	Start int
	End   int
}

// Quote is the evidence text captured for a fact at ingestion time.
// It is immutable after capture; re-capturing produces a new Quote.
type Quote struct {
	Text string

	// Stored offsets per representation, nil when never captured.
	Raw      *OffsetRange
	Markdown *OffsetRange
}

// SourceContent is a read-only snapshot of the current rendering of a source
// document. Any representation may be absent (empty string).
type SourceContent struct {
	ProjectID string
	SourceURL string

	Text     string
	Markdown string
	HTML     string

	FetchedAt time.Time
}

// ForRepresentation returns the requested representation, or "" when absent.
func (c *SourceContent) ForRepresentation(r Representation) string {
	switch r {
	case RepresentationMarkdown:
		return c.Markdown
	case RepresentationHTML:
		return c.HTML
	default:
		return c.Text
	}
}

// SourceRef describes where a fact's evidence came from.
type SourceRef struct {
	Domain     string `json:"domain"`
	URL        string `json:"url"`
	SourceType string `json:"source_type"`
}

// FactEvidence is the per-fact evidence payload served by the workspace
// backend: the fact text, the captured quote with its stored offsets, and
// the sources it was captured from.
type FactEvidence struct {
	FactID       string      `json:"fact_id"`
	FactText     string      `json:"fact_text"`
	QuoteTextRaw string      `json:"quote_text_raw"`
	Snippet      string      `json:"evidence_snippet"`
	StartRaw     *int        `json:"evidence_start_char_raw"`
	EndRaw       *int        `json:"evidence_end_char_raw"`
	StartMD      *int        `json:"evidence_start_char_md"`
	EndMD        *int        `json:"evidence_end_char_md"`
	Sources      []SourceRef `json:"sources"`
}

// Quote assembles the immutable quote value from the evidence payload.
func (e *FactEvidence) Quote() Quote {
	q := Quote{Text: e.QuoteTextRaw}
	if e.StartRaw != nil && e.EndRaw != nil {
		q.Raw = &OffsetRange{Start: *e.StartRaw, End: *e.EndRaw}
	}
	if e.StartMD != nil && e.EndMD != nil {
		q.Markdown = &OffsetRange{Start: *e.StartMD, End: *e.EndMD}
	}
	return q
}

// PrimarySource returns the first source, or nil when the fact has none.
func (e *FactEvidence) PrimarySource() *SourceRef {
	if len(e.Sources) == 0 {
		return nil
	}
	ref := e.Sources[0] // copy
	return &ref
}
