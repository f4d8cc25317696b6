package pinpoint

// VisitHistory is a browser-like back/forward trail of visited fact IDs.
// Push records a departure and clears forward history; Back and Forward
// move the given current ID to the opposite stack. Bounded to maxSize
// entries per stack.
type VisitHistory struct {
	back    []string
	forward []string
	maxSize int
}

// NewVisitHistory creates a history bounded to maxSize entries.
func NewVisitHistory(maxSize int) *VisitHistory {
	return &VisitHistory{maxSize: maxSize}
}

func (h *VisitHistory) trim(s []string) []string {
	if h.maxSize <= 0 || len(s) <= h.maxSize {
		return s
	}
	return s[len(s)-h.maxSize:]
}

// Push records the fact being navigated away from and clears forward
// history, like following a fresh link.
func (h *VisitHistory) Push(factID string) {
	if factID == "" {
		return
	}
	h.back = h.trim(append(h.back, factID))
	h.forward = nil
}

// Back pops the most recent back entry, pushing current to forward.
func (h *VisitHistory) Back(current string) (string, bool) {
	if len(h.back) == 0 {
		return "", false
	}
	id := h.back[len(h.back)-1]
	h.back = h.back[:len(h.back)-1]
	if current != "" {
		h.forward = h.trim(append(h.forward, current))
	}
	return id, true
}

// Forward pops the most recent forward entry, pushing current to back.
func (h *VisitHistory) Forward(current string) (string, bool) {
	if len(h.forward) == 0 {
		return "", false
	}
	id := h.forward[len(h.forward)-1]
	h.forward = h.forward[:len(h.forward)-1]
	if current != "" {
		h.back = h.trim(append(h.back, current))
	}
	return id, true
}

// CanGoBack reports whether back history exists.
func (h *VisitHistory) CanGoBack() bool { return len(h.back) > 0 }

// CanGoForward reports whether forward history exists.
func (h *VisitHistory) CanGoForward() bool { return len(h.forward) > 0 }

// Clear empties both stacks.
func (h *VisitHistory) Clear() {
	h.back = nil
	h.forward = nil
}
