package pinpoint

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testKey(target string) ContentKey {
	return ContentKey{ProjectID: "proj", Target: target}
}

func staticFetch(counter *atomic.Int32, content *SourceContent) FetchFunc {
	return func(ctx context.Context) (*SourceContent, error) {
		counter.Add(1)
		return content, nil
	}
}

func TestContentCacheResolveCaches(t *testing.T) {
	c := NewContentCache(time.Minute, 2, zerolog.Nop())
	defer c.Close()

	var calls atomic.Int32
	content := &SourceContent{Text: "body"}

	for i := 0; i < 3; i++ {
		got, err := c.Resolve(context.Background(), testKey("a"), staticFetch(&calls, content))
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if got != content {
			t.Fatal("Resolve returned a different snapshot")
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestContentCacheConcurrentResolveSharesFetch(t *testing.T) {
	c := NewContentCache(time.Minute, 2, zerolog.Nop())
	defer c.Close()

	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (*SourceContent, error) {
		calls.Add(1)
		<-gate
		return &SourceContent{Text: "body"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Resolve(context.Background(), testKey("a"), fetch); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}()
	}

	// let the goroutines pile onto the single in-flight fetch
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1 shared fetch", n)
	}
}

func TestContentCacheResolveError(t *testing.T) {
	c := NewContentCache(time.Minute, 2, zerolog.Nop())
	defer c.Close()

	wantErr := errors.New("boom")
	var calls atomic.Int32
	fetch := func(ctx context.Context) (*SourceContent, error) {
		calls.Add(1)
		return nil, wantErr
	}

	if _, err := c.Resolve(context.Background(), testKey("a"), fetch); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	// failures are not cached; the next resolve fetches again
	if _, err := c.Resolve(context.Background(), testKey("a"), fetch); !errors.Is(err, wantErr) {
		t.Fatalf("second err = %v, want %v", err, wantErr)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestContentCacheDuplicatePrefetch(t *testing.T) {
	c := NewContentCache(time.Minute, 2, zerolog.Nop())
	defer c.Close()

	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (*SourceContent, error) {
		calls.Add(1)
		<-gate
		return &SourceContent{Text: "body"}, nil
	}

	c.Prefetch(testKey("a"), fetch)
	c.Prefetch(testKey("a"), fetch) // duplicate joins the pending entry
	close(gate)

	got, err := c.Resolve(context.Background(), testKey("a"), fetch)
	if err != nil || got == nil {
		t.Fatalf("Resolve after prefetch: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestContentCachePrefetchCap(t *testing.T) {
	c := NewContentCache(time.Minute, 1, zerolog.Nop())
	defer c.Close()

	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (*SourceContent, error) {
		calls.Add(1)
		<-gate
		return &SourceContent{Text: "body"}, nil
	}

	c.Prefetch(testKey("a"), fetch)
	c.Prefetch(testKey("b"), fetch) // over the cap, dropped
	close(gate)

	deadline := time.After(time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("prefetch never ran")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1 (cap enforced)", n)
	}
}

func TestContentCacheInvalidateCancelsInflight(t *testing.T) {
	c := NewContentCache(time.Minute, 2, zerolog.Nop())
	defer c.Close()

	started := make(chan struct{})
	fetch := func(ctx context.Context) (*SourceContent, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background(), testKey("a"), fetch)
		errCh <- err
	}()

	<-started
	c.Invalidate(testKey("a"))

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Resolve did not return after Invalidate")
	}
}

func TestContentCacheClearProject(t *testing.T) {
	c := NewContentCache(time.Minute, 2, zerolog.Nop())
	defer c.Close()

	var callsA, callsB atomic.Int32
	contentA := &SourceContent{Text: "a"}
	contentB := &SourceContent{Text: "b"}
	keyA := ContentKey{ProjectID: "alpha", Target: "doc"}
	keyB := ContentKey{ProjectID: "beta", Target: "doc"}

	if _, err := c.Resolve(context.Background(), keyA, staticFetch(&callsA, contentA)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Resolve(context.Background(), keyB, staticFetch(&callsB, contentB)); err != nil {
		t.Fatal(err)
	}

	c.ClearProject("alpha")

	// alpha refetches, beta is still cached
	if _, err := c.Resolve(context.Background(), keyA, staticFetch(&callsA, contentA)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Resolve(context.Background(), keyB, staticFetch(&callsB, contentB)); err != nil {
		t.Fatal(err)
	}
	if n := callsA.Load(); n != 2 {
		t.Errorf("alpha fetches = %d, want 2", n)
	}
	if n := callsB.Load(); n != 1 {
		t.Errorf("beta fetches = %d, want 1", n)
	}
}

func TestContentCacheResolveHonorsCallerContext(t *testing.T) {
	c := NewContentCache(time.Minute, 2, zerolog.Nop())
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	fetch := func(fctx context.Context) (*SourceContent, error) {
		close(started)
		<-fctx.Done()
		return nil, fctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Resolve(ctx, testKey("a"), fetch)
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Resolve did not honor caller cancellation")
	}
}
