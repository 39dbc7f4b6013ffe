package listen

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voxd/config"
)

const waitTimeout = 2 * time.Second

type step struct {
	partials []string
	final    string
	err      error
}

type fakeSource struct {
	steps        chan step
	closed       chan struct{}
	lateOnCancel string
}

func (f *fakeSource) Next(ctx context.Context, onPartial func(string)) (string, error) {
	select {
	case st := <-f.steps:
		for _, p := range st.partials {
			if onPartial != nil {
				onPartial(p)
			}
		}
		return st.final, st.err
	case <-ctx.Done():
		if f.lateOnCancel != "" && onPartial != nil {
			onPartial(f.lateOnCancel)
		}
		return f.lateOnCancel, ctx.Err()
	}
}

func (f *fakeSource) Close() error {
	close(f.closed)
	return nil
}

type fakeOpener struct {
	opens        atomic.Int32
	gate         chan struct{}
	err          error
	lateOnCancel string
	sources      chan *fakeSource
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{sources: make(chan *fakeSource, 8)}
}

func (o *fakeOpener) Open(ctx context.Context, _ config.Session) (Source, error) {
	o.opens.Add(1)
	if o.gate != nil {
		select {
		case <-o.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	src := &fakeSource{steps: make(chan step), closed: make(chan struct{}), lateOnCancel: o.lateOnCancel}
	o.sources <- src
	return src, nil
}

type fakeTyper struct {
	typed chan string
}

func (f *fakeTyper) Type(text string) error {
	f.typed <- text
	return nil
}

type recorder struct {
	events chan string
}

func (r *recorder) Started(Period)           { r.events <- "started" }
func (r *recorder) Stopped(Period)           { r.events <- "stopped" }
func (r *recorder) Failed(_ Period, e error) { r.events <- "failed: " + e.Error() }

type harness struct {
	m      *Machine
	opener *fakeOpener
	typer  *fakeTyper
	obs    *recorder
	cancel context.CancelFunc
	done   chan struct{}
}

func newHarness(t *testing.T, wordByWord bool, tweak func(*Options)) *harness {
	t.Helper()
	h := &harness{
		opener: newFakeOpener(),
		typer:  &fakeTyper{typed: make(chan string, 32)},
		obs:    &recorder{events: make(chan string, 32)},
		done:   make(chan struct{}),
	}
	opts := Options{
		Session:  config.Session{Model: "base.en", Language: "en", WordByWord: wordByWord},
		Opener:   h.opener,
		Typer:    h.typer,
		Observer: h.obs,
	}
	if tweak != nil {
		tweak(&opts)
	}
	h.m = New(opts)
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		h.m.Run(ctx)
	}()
	t.Cleanup(h.shutdown)
}

func (h *harness) shutdown() {
	h.cancel()
	<-h.done
}

func expect(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func expectNone(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func nextSource(t *testing.T, o *fakeOpener) *fakeSource {
	t.Helper()
	select {
	case src := <-o.sources:
		return src
	case <-time.After(waitTimeout):
		t.Fatal("source never opened")
		return nil
	}
}

func waitClosed(t *testing.T, src *fakeSource) {
	t.Helper()
	select {
	case <-src.closed:
	case <-time.After(waitTimeout):
		t.Fatal("source not released")
	}
}

// startListening toggles on and waits until the worker is ready by
// round-tripping one phrase.
func startListening(t *testing.T, h *harness) *fakeSource {
	t.Helper()
	h.m.Toggle("test")
	expect(t, h.obs.events, "started")
	src := nextSource(t, h.opener)
	src.steps <- step{final: "ready"}
	expect(t, h.typer.typed, "ready")
	return src
}

func TestToggleStartStop(t *testing.T) {
	h := newHarness(t, false, nil)
	h.run(t)

	if h.m.State() != Idle {
		t.Fatalf("initial state %s", h.m.State())
	}
	src := startListening(t, h)
	if h.m.State() != Listening {
		t.Fatalf("state %s, want listening", h.m.State())
	}

	src.steps <- step{final: "  hello there \n"}
	expect(t, h.typer.typed, "hello there")

	src.steps <- step{final: "   "}
	expectNone(t, h.typer.typed)

	h.m.Toggle("test")
	expect(t, h.obs.events, "stopped")
	waitClosed(t, src)
	if h.m.State() != Idle {
		t.Fatalf("state %s, want idle", h.m.State())
	}
}

func TestWordByWordDeltas(t *testing.T) {
	h := newHarness(t, true, nil)
	h.run(t)

	h.m.Toggle("test")
	expect(t, h.obs.events, "started")
	src := nextSource(t, h.opener)

	src.steps <- step{partials: []string{"hello", "hello world"}, final: "hello world again"}
	expect(t, h.typer.typed, "hello")
	expect(t, h.typer.typed, " world")
	expect(t, h.typer.typed, " again")

	// New utterance starts from an empty buffer.
	src.steps <- step{partials: []string{"next"}, final: "next"}
	expect(t, h.typer.typed, "next")

	// A revision emits nothing and does not repeat earlier text.
	src.steps <- step{partials: []string{"I scream", "ice cream", "I scream"}, final: "ice cream"}
	expect(t, h.typer.typed, "I scream")
	expectNone(t, h.typer.typed)
}

func TestRacingTriggersStartOnePeriod(t *testing.T) {
	var marker atomic.Bool
	h := newHarness(t, false, func(o *Options) {
		o.Poll = func() bool { return marker.Swap(false) }
		o.PollInterval = 5 * time.Millisecond
	})
	h.opener.gate = make(chan struct{})
	h.run(t)

	h.m.Toggle("signal")
	expect(t, h.obs.events, "started")

	// Transition is pending until the source opens. Everything below
	// must be dropped.
	marker.Store(true)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.m.Toggle("signal")
		}()
	}
	wg.Wait()
	deadline := time.Now().Add(waitTimeout)
	for marker.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	close(h.opener.gate)
	src := nextSource(t, h.opener)
	src.steps <- step{final: "one"}
	expect(t, h.typer.typed, "one")

	if n := h.opener.opens.Load(); n != 1 {
		t.Fatalf("opened %d sources, want 1", n)
	}
	expectNone(t, h.obs.events)
	if h.m.State() != Listening {
		t.Fatalf("state %s", h.m.State())
	}

	// One trigger per edge from here on.
	marker.Store(true)
	expect(t, h.obs.events, "stopped")
	waitClosed(t, src)
}

func TestDebounce(t *testing.T) {
	h := newHarness(t, false, func(o *Options) { o.Debounce = time.Hour })
	h.run(t)

	startListening(t, h)
	h.m.Toggle("marker")
	expectNone(t, h.obs.events)
	if h.m.State() != Listening {
		t.Fatalf("debounced toggle changed state to %s", h.m.State())
	}
}

func TestFatalErrorGoesIdleOnce(t *testing.T) {
	h := newHarness(t, true, nil)
	h.run(t)

	h.m.Toggle("test")
	expect(t, h.obs.events, "started")
	src := nextSource(t, h.opener)

	src.steps <- step{partials: []string{"partial"}, err: errors.New("boom")}
	expect(t, h.typer.typed, "partial")
	expect(t, h.obs.events, "failed: boom")
	waitClosed(t, src)

	if h.m.State() != Idle {
		t.Fatalf("state %s, want idle", h.m.State())
	}
	expectNone(t, h.obs.events)
	expectNone(t, h.typer.typed)
	if n := h.opener.opens.Load(); n != 1 {
		t.Fatalf("reopened %d times", n)
	}

	// The user can start again.
	h.m.Toggle("test")
	expect(t, h.obs.events, "started")
	nextSource(t, h.opener)
}

func TestOpenErrorFails(t *testing.T) {
	h := newHarness(t, false, nil)
	h.opener.err = errors.New("no microphone")
	h.run(t)

	h.m.Toggle("test")
	expect(t, h.obs.events, "started")
	expect(t, h.obs.events, "failed: no microphone")
	if h.m.State() != Idle {
		t.Fatalf("state %s", h.m.State())
	}
}

func TestNoTextAfterStop(t *testing.T) {
	h := newHarness(t, true, nil)
	h.opener.lateOnCancel = "late words"
	h.run(t)

	src := startListening(t, h)
	h.m.Toggle("test")
	expect(t, h.obs.events, "stopped")
	waitClosed(t, src)
	expectNone(t, h.typer.typed)
}

func TestSourceEndStops(t *testing.T) {
	h := newHarness(t, false, nil)
	h.run(t)

	src := startListening(t, h)
	src.steps <- step{err: io.EOF}
	expect(t, h.obs.events, "stopped")
	waitClosed(t, src)
	if h.m.State() != Idle {
		t.Fatalf("state %s", h.m.State())
	}
}

func TestShutdownWhileListening(t *testing.T) {
	h := newHarness(t, false, nil)
	h.run(t)

	src := startListening(t, h)
	h.shutdown()

	expect(t, h.obs.events, "stopped")
	waitClosed(t, src)
	if h.m.State() != Idle {
		t.Fatalf("state %s", h.m.State())
	}
}

func TestToggleNeverBlocks(t *testing.T) {
	h := newHarness(t, false, nil)
	// No Run loop: the first request queues, the rest are dropped.
	if !h.m.Toggle("a") {
		t.Fatal("first toggle dropped")
	}
	for range 5 {
		if h.m.Toggle("b") {
			t.Fatal("queued a second request")
		}
	}
}
