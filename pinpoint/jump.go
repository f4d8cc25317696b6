package pinpoint

// The jump lifecycle — marker injected, marker found in the render,
// scrolled — is an explicit finite-state value with a pure transition
// function, independent of any rendering framework.

// JumpPhase is the per-(fact, representation) highlight lifecycle state.
type JumpPhase int

const (
	// JumpIdle: no highlight requested yet, or the representation/quote
	// just changed.
	JumpIdle JumpPhase = iota
	// JumpInjected: the marker has been placed in the content about to
	// render; the next render pass includes it.
	JumpInjected
	// JumpScrolled: the marker was located in the render and scrolled
	// into view. Terminal until the tracker is reset.
	JumpScrolled
)

func (p JumpPhase) String() string {
	switch p {
	case JumpInjected:
		return "injected"
	case JumpScrolled:
		return "scrolled"
	default:
		return "idle"
	}
}

// JumpEvent drives phase transitions.
type JumpEvent int

const (
	// EventContentReady: content resolved and a quote is present; the
	// caller re-renders with the injector's output.
	EventContentReady JumpEvent = iota
	// EventMarkerSeen: the marker was observed in the render tree and
	// scrolled to.
	EventMarkerSeen
	// EventReset: the active representation or the quote identity
	// changed; stale markers must never be scrolled to.
	EventReset
)

// NextJumpPhase is the pure transition function. Undefined combinations
// keep the current phase, which makes JumpScrolled a no-op guard against
// repeated effect evaluations.
func NextJumpPhase(p JumpPhase, ev JumpEvent) JumpPhase {
	switch ev {
	case EventReset:
		return JumpIdle
	case EventContentReady:
		if p == JumpIdle {
			return JumpInjected
		}
	case EventMarkerSeen:
		if p == JumpInjected {
			return JumpScrolled
		}
	}
	return p
}

// JumpTracker holds the phase for the currently active
// (quote, representation) pair and resets it whenever that identity
// changes.
type JumpTracker struct {
	factID string
	rep    Representation
	phase  JumpPhase
}

// Phase returns the current phase.
func (t *JumpTracker) Phase() JumpPhase { return t.phase }

// Activate points the tracker at a (fact, representation) pair. Any
// identity change resets the phase to JumpIdle, even from JumpScrolled.
func (t *JumpTracker) Activate(factID string, rep Representation) {
	if t.factID == factID && t.rep == rep {
		return
	}
	t.factID = factID
	t.rep = rep
	t.phase = JumpIdle
}

// Apply advances the phase and reports whether it changed.
func (t *JumpTracker) Apply(ev JumpEvent) bool {
	next := NextJumpPhase(t.phase, ev)
	changed := next != t.phase
	t.phase = next
	return changed
}
