package pinpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Sentinel errors for evidence resolution.
var (
	// ErrContentUnavailable is returned when a fetch failed or produced
	// no content; there is nothing to search.
	ErrContentUnavailable = errors.New("content unavailable")
	// ErrNoQuote is returned when the fact carries no captured quote.
	ErrNoQuote = errors.New("fact has no captured quote")
	// ErrSuperseded is returned when a newer request replaced this one
	// before its result could be applied.
	ErrSuperseded = errors.New("request superseded")
)

// EvidenceProvider is the excluded-collaborator surface the session
// consumes: content retrieval, per-fact evidence metadata, and the
// re-capture write-back.
type EvidenceProvider interface {
	// FetchSourceContent retrieves the current rendering of a source.
	// mode is "text", "markdown", "html", or "auto" (markdown, then
	// HTML, then text).
	FetchSourceContent(ctx context.Context, projectID, url, mode string) (*SourceContent, error)

	// FetchFactEvidence retrieves the quote, stored offsets, and source
	// list for a fact.
	FetchFactEvidence(ctx context.Context, projectID, factID string) (*FactEvidence, error)

	// CaptureExcerpt writes a newly chosen quote span back to the fact.
	CaptureExcerpt(ctx context.Context, projectID, factID string, sourceURL, format string, start, end int) error
}

// EvidenceDisplay is what the session hands the rendering layer: the
// representation text with the marker embedded (or not), and the
// confidence tier to surface.
type EvidenceDisplay struct {
	// Content is the displayed copy of the representation: reader
	// formatting applied where needed, citation markers stripped, marker
	// embedded when Injected.
	Content        string
	Representation Representation
	// Match offsets index the representation text that was searched,
	// which stripping and formatting shift; use them for the confidence
	// tier, never to slice Content.
	Match MatchResult
	// Injected is false when no match was found or injection was
	// skipped to avoid corrupting structured content; the true match
	// confidence is still in Match.
	Injected bool
}

// EvidenceSession is the UI-agnostic core of the evidence panel: it
// resolves content through the cache, locates the quote, injects the
// marker, and tracks the jump lifecycle. A host surface calls ShowFact
// when the user navigates and SetRepresentation when the view switches.
//
// Results are applied only when the request that produced them is still
// the most recently issued one for the session, checked by token, not by
// arrival order.
type EvidenceSession struct {
	mu sync.Mutex

	provider EvidenceProvider
	cache    *ContentCache
	matcher  *TieredMatcher
	log      zerolog.Logger

	projectID string
	rep       Representation

	factID   string
	evidence *FactEvidence
	content  *SourceContent
	display  EvidenceDisplay

	jump    JumpTracker
	history *VisitHistory

	latest uint64
	cancel context.CancelFunc
}

// SessionOptions configures an EvidenceSession.
type SessionOptions struct {
	Provider EvidenceProvider
	Cache    *ContentCache
	Matcher  *TieredMatcher
	Logger   zerolog.Logger
}

// NewEvidenceSession creates a session for one project.
func NewEvidenceSession(projectID string, opts SessionOptions) *EvidenceSession {
	matcher := opts.Matcher
	if matcher == nil {
		matcher = NewTieredMatcher()
	}
	return &EvidenceSession{
		provider:  opts.Provider,
		cache:     opts.Cache,
		matcher:   matcher,
		log:       opts.Logger,
		projectID: projectID,
		rep:       RepresentationMarkdown,
		history:   NewVisitHistory(50),
	}
}

// Representation returns the active representation.
func (s *EvidenceSession) Representation() Representation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rep
}

// FactID returns the active fact, or "" when none.
func (s *EvidenceSession) FactID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.factID
}

// Display returns the last computed display payload.
func (s *EvidenceSession) Display() EvidenceDisplay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// JumpPhase returns the highlight lifecycle phase for the active
// (fact, representation) pair.
func (s *EvidenceSession) JumpPhase() JumpPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jump.Phase()
}

// SetRepresentation switches the active view (reader vs. raw) and resets
// the jump lifecycle so a stale marker is never scrolled to. The display
// is recomputed from the already-resolved content.
func (s *EvidenceSession) SetRepresentation(rep Representation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rep == rep {
		return
	}
	s.rep = rep
	s.jump.Activate(s.factID, rep)
	s.recomputeDisplayLocked()
}

// ShowFact resolves evidence for factID and prepares the display. A call
// supersedes any outstanding one: the older request is cancelled and its
// late result is never applied. neighbors are the fact's adjacent entries
// in the caller's navigation list, prefetched opportunistically.
func (s *EvidenceSession) ShowFact(ctx context.Context, factID string, neighbors []string) (EvidenceDisplay, error) {
	s.mu.Lock()
	s.latest++
	token := s.latest
	if s.cancel != nil {
		s.cancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.factID != "" && s.factID != factID {
		s.history.Push(s.factID)
	}
	s.mu.Unlock()

	ev, err := s.provider.FetchFactEvidence(rctx, s.projectID, factID)
	if err != nil {
		return EvidenceDisplay{}, fmt.Errorf("fetch evidence for fact %q: %w", factID, ErrContentUnavailable)
	}

	src := ev.PrimarySource()
	if src == nil {
		return EvidenceDisplay{}, ErrContentUnavailable
	}

	content, err := s.cache.Resolve(rctx, ContentKey{ProjectID: s.projectID, Target: src.URL}, func(fctx context.Context) (*SourceContent, error) {
		return s.provider.FetchSourceContent(fctx, s.projectID, src.URL, "auto")
	})
	if err != nil {
		return EvidenceDisplay{}, fmt.Errorf("fetch content for %q: %w", src.URL, ErrContentUnavailable)
	}
	if content == nil || (content.Text == "" && content.Markdown == "" && content.HTML == "") {
		return EvidenceDisplay{}, ErrContentUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A slower earlier request must not clobber a faster later one.
	if token != s.latest {
		return EvidenceDisplay{}, ErrSuperseded
	}

	s.factID = factID
	s.evidence = ev
	s.content = content
	s.jump.Activate(factID, s.rep)
	s.recomputeDisplayLocked()

	s.prefetchNeighborsLocked(neighbors)

	return s.display, nil
}

// recomputeDisplayLocked rebuilds the display payload for the active
// content and representation. The displayed copy has citation markers
// stripped; display.Match keeps offsets into the unstripped text.
func (s *EvidenceSession) recomputeDisplayLocked() {
	s.buildDisplayLocked()
	s.display.Content = StripCitationMarkers(s.display.Content)
}

// buildDisplayLocked locates the quote in the active representation
// and injects the marker. Content without a quote renders unmarked.
func (s *EvidenceSession) buildDisplayLocked() {
	s.display = EvidenceDisplay{Representation: s.rep}
	if s.content == nil {
		return
	}

	text := s.content.ForRepresentation(s.rep)
	if s.rep == RepresentationMarkdown && text == "" {
		// reader view over text-only sources: format the raw text
		text = FormatReader(s.content.Text)
	}
	s.display.Content = text

	if s.evidence == nil || s.evidence.QuoteTextRaw == "" || text == "" {
		s.display.Match = MatchResult{Type: MatchTypeNone}
		return
	}

	quote := s.evidence.Quote()
	match := LocateQuote(s.matcher, quote, text, s.rep)
	s.display.Match = match
	if !match.Found {
		s.log.Debug().
			Str("fact", s.factID).
			Str("representation", s.rep.String()).
			Msg("quote not found in current content")
		return
	}

	var marked string
	var ok bool
	switch s.rep {
	case RepresentationMarkdown:
		marked, ok = InjectMarkdown(text, match.Start, match.End)
	case RepresentationText:
		// the text view renders block by block; flat offsets do not
		// survive the split, so the snippet is re-found per block
		blocks, injected := InjectBlocks(SplitBlocks(text), text[match.Start:match.End])
		marked, ok = JoinBlocks(blocks), injected
	default:
		marked, ok = InjectPlain(text, match.Start, match.End)
	}
	if !ok {
		// injection skipped: keep the true confidence, drop the highlight
		if marked != "" {
			s.display.Content = marked
		}
		return
	}

	s.display.Content = marked
	s.display.Injected = true
	s.jump.Apply(EventContentReady)
}

// prefetchNeighborsLocked warms the cache for the facts adjacent to the
// active one in the navigation list.
func (s *EvidenceSession) prefetchNeighborsLocked(neighbors []string) {
	for _, factID := range neighbors {
		if factID == "" || factID == s.factID {
			continue
		}
		id := factID
		s.cache.Prefetch(ContentKey{ProjectID: s.projectID, Target: "fact:" + id}, func(fctx context.Context) (*SourceContent, error) {
			ev, err := s.provider.FetchFactEvidence(fctx, s.projectID, id)
			if err != nil {
				return nil, err
			}
			src := ev.PrimarySource()
			if src == nil {
				return nil, ErrContentUnavailable
			}
			return s.provider.FetchSourceContent(fctx, s.projectID, src.URL, "auto")
		})
	}
}

// MarkerSeen records that the render surface located the marker and
// scrolled to it. Returns false when the jump was already completed (or
// never started), making repeated effect evaluations harmless.
func (s *EvidenceSession) MarkerSeen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jump.Apply(EventMarkerSeen)
}

// CaptureExcerpt writes a newly chosen quote span back to the fact and
// invalidates the session's cached view of it: the next ShowFact re-reads
// fresh offsets.
func (s *EvidenceSession) CaptureExcerpt(ctx context.Context, sourceURL, format string, start, end int) error {
	s.mu.Lock()
	factID := s.factID
	s.mu.Unlock()
	if factID == "" {
		return ErrNoQuote
	}

	if err := s.provider.CaptureExcerpt(ctx, s.projectID, factID, sourceURL, format, start, end); err != nil {
		return fmt.Errorf("capture excerpt: %w", err)
	}

	s.mu.Lock()
	s.evidence = nil
	s.jump.Activate("", s.rep)
	s.mu.Unlock()
	s.cache.Invalidate(ContentKey{ProjectID: s.projectID, Target: sourceURL})
	return nil
}

// SwitchProject clears all cached content (no cross-project leakage) and
// resets the session to an empty state.
func (s *EvidenceSession) SwitchProject(projectID string) {
	s.mu.Lock()
	old := s.projectID
	s.projectID = projectID
	s.factID = ""
	s.evidence = nil
	s.content = nil
	s.display = EvidenceDisplay{Representation: s.rep}
	s.jump = JumpTracker{}
	s.history.Clear()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.cache.ClearProject(old)
}

// Close cancels any outstanding request.
func (s *EvidenceSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// GoBack returns the previously visited fact ID, or "" when history is
// empty. The caller is expected to ShowFact the returned ID.
func (s *EvidenceSession) GoBack() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.history.Back(s.factID)
	if !ok {
		return ""
	}
	s.factID = "" // ShowFact will not re-push the popped entry
	return id
}

// GoForward returns the next fact ID in forward history, or "".
func (s *EvidenceSession) GoForward() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.history.Forward(s.factID)
	if !ok {
		return ""
	}
	s.factID = ""
	return id
}
