package pinpoint

import (
	"context"
	"time"
)

// RetryPolicy bounds the "poll for marker, then fall back" behavior.
// All waiting goes through an injectable sleeper so the policy is
// testable without a real render tree or real time.
type RetryPolicy struct {
	// SettleHops is the number of deferred hops before the first probe,
	// giving the render surface a chance to finish a layout pass.
	SettleHops int
	// MaxAttempts bounds the probe loop.
	MaxAttempts int
	// Interval separates consecutive probes.
	Interval time.Duration
	// FallbackDelay precedes one final probe after the loop exhausts.
	FallbackDelay time.Duration
}

// DefaultRetryPolicy matches one frame of layout latency plus a settle
// window of roughly a second before the fallback lookup.
var DefaultRetryPolicy = RetryPolicy{
	SettleHops:    2,
	MaxAttempts:   8,
	Interval:      120 * time.Millisecond,
	FallbackDelay: 900 * time.Millisecond,
}

// Sleeper waits for the given duration. Tests inject instant sleepers.
type Sleeper func(time.Duration)

// Hopper defers fn past one settle hop of the rendering surface (for a
// terminal UI, one queued redraw; in tests, an immediate call).
type Hopper func(fn func())

// WaitUntil probes until the predicate reports true or the policy gives
// up: settle hops first, then up to MaxAttempts probes Interval apart,
// then a single fallback probe after FallbackDelay. Returns whether the
// predicate ever held. A cancelled context stops the wait early.
func WaitUntil(ctx context.Context, policy RetryPolicy, sleep Sleeper, hop Hopper, probe func() bool) bool {
	if sleep == nil {
		sleep = time.Sleep
	}
	if hop == nil {
		hop = func(fn func()) { fn() }
	}

	settled := make(chan struct{})
	hopChain(hop, policy.SettleHops, func() { close(settled) })
	select {
	case <-settled:
	case <-ctx.Done():
		return false
	}

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if probe() {
			return true
		}
		sleep(policy.Interval)
	}

	if ctx.Err() != nil {
		return false
	}
	sleep(policy.FallbackDelay)
	return ctx.Err() == nil && probe()
}

func hopChain(hop Hopper, n int, done func()) {
	if n <= 0 {
		done()
		return
	}
	hop(func() { hopChain(hop, n-1, done) })
}
