package pinpoint

import (
	"regexp"
	"strconv"
	"strings"
)

// Tunable skip budgets. Empirically chosen against capture/re-fetch drift;
// see the matching strategy docs below before changing them.
const (
	// fuzzySkipBudget bounds the run of non-word characters and digits the
	// fuzzy strategy may absorb between quote tokens (inline citation
	// markers, footnote glyphs, stray punctuation).
	fuzzySkipBudget = 50

	// looseSkipBudget bounds the run of arbitrary characters the loose
	// strategy may absorb between tokens (parenthetical insertions,
	// reworded connective clauses).
	looseSkipBudget = 150

	// anchorMinTokens is the minimum quote token count before the anchor
	// strategy will drop the leading two tokens and retry. Short quotes
	// lose too much identity to anchor on their tail.
	anchorMinTokens = 7

	// anchorDropTokens is how many leading tokens the anchor strategy
	// discards; the common drift case is a rewritten "It is"-style opener.
	anchorDropTokens = 2
)

// MatchStrategy locates a quote inside text, reporting byte offsets into
// text and the confidence tier of a successful match.
type MatchStrategy interface {
	Locate(quote, text string) MatchResult
}

// TieredMatcher runs an ordered set of strategies, stopping at the first
// success. Each configured strategy is expected to be strictly more
// permissive (and less precise) than the one before it.
type TieredMatcher struct {
	strategies []MatchStrategy
}

// NewTieredMatcher creates a matcher with the default strategy order:
// exact, normalized, fuzzy, loose, anchor.
func NewTieredMatcher() *TieredMatcher {
	return &TieredMatcher{
		strategies: []MatchStrategy{
			ExactStrategy{},
			NormalizedStrategy{},
			FuzzyStrategy{SkipBudget: fuzzySkipBudget, SkipAnyRune: false},
			FuzzyStrategy{SkipBudget: looseSkipBudget, SkipAnyRune: true},
			AnchorStrategy{},
		},
	}
}

// NewTieredMatcherWithStrategies creates a matcher with a caller-chosen
// strategy set and order, for callers that need different tolerances.
func NewTieredMatcherWithStrategies(strategies ...MatchStrategy) *TieredMatcher {
	return &TieredMatcher{strategies: strategies}
}

// Locate runs the strategies in order and returns the first success, or a
// not-found result with MatchTypeNone when every strategy fails.
// Deterministic: no randomness, first occurrence wins within a strategy.
func (m *TieredMatcher) Locate(quote, text string) MatchResult {
	quote = strings.TrimSpace(quote)
	if quote == "" || text == "" {
		return MatchResult{Type: MatchTypeNone}
	}

	for _, s := range m.strategies {
		if res := s.Locate(quote, text); res.Found {
			return res
		}
	}
	return MatchResult{Type: MatchTypeNone}
}

// ExactStrategy finds the quote as a case-insensitive verbatim substring.
type ExactStrategy struct{}

func (ExactStrategy) Locate(quote, text string) MatchResult {
	ftText := fold(text, foldOptions{})
	ftQuote := fold(quote, foldOptions{})

	idx := strings.Index(ftText.s, ftQuote.s)
	if idx < 0 {
		return MatchResult{Type: MatchTypeNone}
	}

	start, end := ftText.spanToOriginal(idx, idx+len(ftQuote.s))
	return MatchResult{Found: true, Start: start, End: end, Type: MatchTypeExact}
}

// NormalizedStrategy folds case and collapses whitespace runs on both sides
// before searching, mapping the hit back to original byte offsets. It
// recovers quotes whose internal spacing was reflowed between captures.
type NormalizedStrategy struct{}

func (NormalizedStrategy) Locate(quote, text string) MatchResult {
	ftText := fold(text, foldOptions{collapseWhitespace: true})
	needle := strings.TrimSpace(fold(quote, foldOptions{collapseWhitespace: true}).s)
	if needle == "" {
		return MatchResult{Type: MatchTypeNone}
	}

	idx := strings.Index(ftText.s, needle)
	if idx < 0 {
		return MatchResult{Type: MatchTypeNone}
	}

	start, end := ftText.spanToOriginal(idx, idx+len(needle))
	return MatchResult{Found: true, Start: start, End: end, Type: MatchTypeNormalized}
}

// FuzzyStrategy tokenizes the quote on whitespace and joins the
// regexp-escaped tokens with a bounded skip pattern. With SkipAnyRune false
// the skip absorbs only non-word characters and digits (citation markers,
// punctuation); with SkipAnyRune true it absorbs anything up to the budget
// (parentheticals, reworded clauses) and is the "loose" tier, which still
// reports MatchTypeFuzzy.
type FuzzyStrategy struct {
	SkipBudget  int
	SkipAnyRune bool
}

func (f FuzzyStrategy) Locate(quote, text string) MatchResult {
	re, ok := f.compile(quote)
	if !ok {
		return MatchResult{Type: MatchTypeNone}
	}

	loc := re.FindStringIndex(text)
	if loc == nil {
		return MatchResult{Type: MatchTypeNone}
	}
	return MatchResult{Found: true, Start: loc[0], End: loc[1], Type: MatchTypeFuzzy}
}

func (f FuzzyStrategy) compile(quote string) (*regexp.Regexp, bool) {
	return compileTokenPattern(strings.Fields(quote), f.SkipBudget, f.SkipAnyRune)
}

// compileTokenPattern builds a case-insensitive pattern matching the tokens
// in order with up to budget skip characters between consecutive tokens.
// Quote text is untrusted input: every token is escaped for literal
// matching before composition.
func compileTokenPattern(tokens []string, budget int, skipAnyRune bool) (*regexp.Regexp, bool) {
	if len(tokens) == 0 {
		return nil, false
	}

	skip := `[\W\d]`
	flags := "(?i)"
	if skipAnyRune {
		skip = `.`
		flags = "(?is)"
	}

	var b strings.Builder
	b.WriteString(flags)
	for i, tok := range tokens {
		if i > 0 {
			b.WriteString(skip)
			b.WriteString("{1,")
			b.WriteString(strconv.Itoa(budget))
			b.WriteString("}")
		}
		b.WriteString(regexp.QuoteMeta(tok))
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, false
	}
	return re, true
}

// AnchorStrategy drops the leading tokens of a long quote (typically a
// rewritten pronoun + copula opener) and reruns the loose search on the
// tail. Only quotes with more than anchorMinTokens-1 tokens qualify.
type AnchorStrategy struct{}

func (AnchorStrategy) Locate(quote, text string) MatchResult {
	tokens := strings.Fields(quote)
	if len(tokens) < anchorMinTokens {
		return MatchResult{Type: MatchTypeNone}
	}

	re, ok := compileTokenPattern(tokens[anchorDropTokens:], looseSkipBudget, true)
	if !ok {
		return MatchResult{Type: MatchTypeNone}
	}

	loc := re.FindStringIndex(text)
	if loc == nil {
		return MatchResult{Type: MatchTypeNone}
	}
	return MatchResult{Found: true, Start: loc[0], End: loc[1], Type: MatchTypeAnchor}
}
