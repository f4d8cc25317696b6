package pinpoint

// ValidateStoredOffsets is the fast path for quotes that carry offsets
// captured at ingestion time. It accepts when the span is in range and the
// spanned text is still a plausible rendering of the quote: equal after
// case folding and whitespace collapsing. Left permissive on purpose to
// absorb trivial re-encoding between captures.
//
// Never panics on bad input. Negative, reversed, or out-of-range offsets
// report found=false so the caller falls through to the tiered matcher.
func ValidateStoredOffsets(quote string, text string, stored *OffsetRange) MatchResult {
	if stored == nil || quote == "" {
		return MatchResult{Type: MatchTypeNone}
	}
	if stored.Start < 0 || stored.End <= stored.Start || stored.End > len(text) {
		return MatchResult{Type: MatchTypeNone}
	}

	if Normalize(text[stored.Start:stored.End]) != Normalize(quote) {
		return MatchResult{Type: MatchTypeNone}
	}

	return MatchResult{Found: true, Start: stored.Start, End: stored.End, Type: MatchTypeStored}
}

// LocateQuote resolves a quote against text for the given representation:
// stored offsets first, then the tiered strategies.
func LocateQuote(matcher *TieredMatcher, quote Quote, text string, rep Representation) MatchResult {
	var stored *OffsetRange
	switch rep {
	case RepresentationMarkdown:
		stored = quote.Markdown
	case RepresentationText:
		stored = quote.Raw
	}

	if res := ValidateStoredOffsets(quote.Text, text, stored); res.Found {
		return res
	}
	return matcher.Locate(quote.Text, text)
}
