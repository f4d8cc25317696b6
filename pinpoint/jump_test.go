package pinpoint

import "testing"

func TestNextJumpPhase(t *testing.T) {
	tests := []struct {
		name  string
		phase JumpPhase
		event JumpEvent
		want  JumpPhase
	}{
		{"idle + content ready", JumpIdle, EventContentReady, JumpInjected},
		{"injected + marker seen", JumpInjected, EventMarkerSeen, JumpScrolled},
		{"reset from idle", JumpIdle, EventReset, JumpIdle},
		{"reset from injected", JumpInjected, EventReset, JumpIdle},
		{"reset from scrolled", JumpScrolled, EventReset, JumpIdle},
		{"marker seen while idle is a no-op", JumpIdle, EventMarkerSeen, JumpIdle},
		{"content ready while injected is a no-op", JumpInjected, EventContentReady, JumpInjected},
		{"scrolled is terminal for marker seen", JumpScrolled, EventMarkerSeen, JumpScrolled},
		{"scrolled is terminal for content ready", JumpScrolled, EventContentReady, JumpScrolled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextJumpPhase(tt.phase, tt.event); got != tt.want {
				t.Errorf("NextJumpPhase(%v, %v) = %v, want %v", tt.phase, tt.event, got, tt.want)
			}
		})
	}
}

func TestJumpTrackerLifecycle(t *testing.T) {
	var tr JumpTracker

	tr.Activate("fact-1", RepresentationMarkdown)
	if tr.Phase() != JumpIdle {
		t.Fatalf("phase after activate = %v, want idle", tr.Phase())
	}

	if !tr.Apply(EventContentReady) {
		t.Error("content ready should advance the phase")
	}
	if !tr.Apply(EventMarkerSeen) {
		t.Error("marker seen should advance the phase")
	}
	if tr.Phase() != JumpScrolled {
		t.Fatalf("phase = %v, want scrolled", tr.Phase())
	}

	// repeated effect evaluation must be harmless
	if tr.Apply(EventMarkerSeen) {
		t.Error("second marker seen should not report a change")
	}
}

func TestJumpTrackerResetOnRepresentationSwitch(t *testing.T) {
	var tr JumpTracker
	tr.Activate("fact-1", RepresentationMarkdown)
	tr.Apply(EventContentReady)
	tr.Apply(EventMarkerSeen)

	// even a completed jump resets when the representation changes
	tr.Activate("fact-1", RepresentationText)
	if tr.Phase() != JumpIdle {
		t.Errorf("phase = %v, want idle after representation switch", tr.Phase())
	}
}

func TestJumpTrackerResetOnFactSwitch(t *testing.T) {
	var tr JumpTracker
	tr.Activate("fact-1", RepresentationMarkdown)
	tr.Apply(EventContentReady)

	tr.Activate("fact-2", RepresentationMarkdown)
	if tr.Phase() != JumpIdle {
		t.Errorf("phase = %v, want idle after fact switch", tr.Phase())
	}
}

func TestJumpTrackerActivateSamePairKeepsPhase(t *testing.T) {
	var tr JumpTracker
	tr.Activate("fact-1", RepresentationMarkdown)
	tr.Apply(EventContentReady)

	tr.Activate("fact-1", RepresentationMarkdown)
	if tr.Phase() != JumpInjected {
		t.Errorf("phase = %v, want injected (same identity keeps phase)", tr.Phase())
	}
}
