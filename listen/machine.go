// Package listen runs the Idle/Listening state machine that owns the
// transcription worker for each listening period.
package listen

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"voxd/config"
	"voxd/log"
)

type State int32

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Source yields one utterance per Next call. onPartial, when non-nil, is
// called on the caller's goroutine with in-progress hypotheses for the
// utterance being recorded.
type Source interface {
	Next(ctx context.Context, onPartial func(string)) (string, error)
	Close() error
}

type Opener interface {
	Open(ctx context.Context, s config.Session) (Source, error)
}

type Typer interface {
	Type(text string) error
}

// Period identifies one Listening span.
type Period struct {
	ID      string
	Session config.Session
}

// Observer receives state side effects on the control goroutine.
type Observer interface {
	Started(p Period)
	Stopped(p Period)
	Failed(p Period, err error)
}

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultPollInterval = 200 * time.Millisecond
)

type Options struct {
	Session  config.Session
	Opener   Opener
	Typer    Typer
	Observer Observer

	// Debounce is the minimum gap between two accepted toggles.
	Debounce time.Duration

	// Poll is checked every PollInterval on the control goroutine; true
	// requests a toggle.
	Poll         func() bool
	PollInterval time.Duration
}

type pending int

const (
	pendingNone pending = iota
	pendingStart
	pendingStop
)

type Machine struct {
	opts Options

	requests chan string
	events   chan event
	state    atomic.Int32

	// Owned by the Run goroutine.
	cur          *worker
	pending      pending
	lastAccepted time.Time
	deliveries   int
	now          func() time.Time
}

func New(opts Options) *Machine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Machine{
		opts:     opts,
		requests: make(chan string, 1),
		events:   make(chan event, 64),
		now:      time.Now,
	}
}

func (m *Machine) State() State {
	return State(m.state.Load())
}

func (m *Machine) Session() config.Session {
	return m.opts.Session
}

// Toggle asks the control loop to flip state. It never blocks; a request
// made while another is still queued is dropped and Toggle returns false.
func (m *Machine) Toggle(source string) bool {
	select {
	case m.requests <- source:
		return true
	default:
		log.Infof("toggle from %s dropped: request already queued", source)
		return false
	}
}

// Run is the control loop. It returns after ctx is cancelled, once any
// running worker has exited and its source has been released.
func (m *Machine) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if m.opts.Poll != nil {
		t := time.NewTicker(m.opts.PollInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case src := <-m.requests:
			m.toggle(src)
		case <-tick:
			if m.opts.Poll() {
				m.toggle("marker")
			}
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Machine) toggle(source string) {
	if m.pending != pendingNone {
		log.Infof("toggle from %s dropped: transition pending", source)
		return
	}
	now := m.now()
	if !m.lastAccepted.IsZero() && now.Sub(m.lastAccepted) < m.opts.Debounce {
		log.Infof("toggle from %s dropped: debounce", source)
		return
	}
	m.lastAccepted = now

	log.Infof("toggle from %s while %s", source, m.State())
	if m.State() == Idle {
		m.start()
	} else {
		m.stop("toggle")
		m.opts.Observer.Stopped(m.cur.period)
	}
}

func (m *Machine) start() {
	p := Period{ID: uuid.NewString(), Session: m.opts.Session}
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{period: p, cancel: cancel, events: m.events}

	m.cur = w
	m.pending = pendingStart
	m.deliveries = 0
	m.state.Store(int32(Listening))

	s := p.Session
	log.PeriodStart(p.ID, s.Model, s.Language, s.WordByWord)
	m.opts.Observer.Started(p)

	go w.run(ctx, m.opts.Opener)
}

// stop moves to Idle and tells the worker to finish. The transition stays
// pending until the worker reports that it has exited.
func (m *Machine) stop(reason string) {
	m.cur.cancel()
	m.state.Store(int32(Idle))
	m.pending = pendingStop
	log.PeriodEnd(m.cur.period.ID, reason, m.deliveries)
}

func (m *Machine) handle(ev event) {
	if m.cur == nil || ev.period != m.cur.period.ID {
		return
	}
	switch ev.kind {
	case evReady:
		if m.pending == pendingStart {
			m.pending = pendingNone
		}
	case evText:
		if m.State() != Listening {
			return
		}
		m.deliver(ev.text)
	case evError:
		if m.State() != Listening {
			log.Warnf("worker error after stop: %v", ev.err)
			return
		}
		log.Errorf("transcription failed: %v", ev.err)
		m.stop("error")
		m.opts.Observer.Failed(m.cur.period, ev.err)
	case evExited:
		if m.State() == Listening {
			m.stop("source ended")
			m.opts.Observer.Stopped(m.cur.period)
		}
		m.cur = nil
		m.pending = pendingNone
	}
}

func (m *Machine) deliver(text string) {
	m.deliveries++
	log.TranscriptionText(m.cur.period.ID, m.opts.Session.Model, strings.TrimSpace(text))
	if err := m.opts.Typer.Type(text); err != nil {
		log.Warnf("type failed: %v", err)
	}
}

func (m *Machine) shutdown() {
	if m.cur == nil {
		return
	}
	w := m.cur
	if m.State() == Listening {
		m.stop("shutdown")
		m.opts.Observer.Stopped(w.period)
	} else {
		w.cancel()
	}
	for ev := range m.events {
		if ev.period == w.period.ID && ev.kind == evExited {
			break
		}
	}
	m.cur = nil
	m.pending = pendingNone
}

type nopObserver struct{}

func (nopObserver) Started(Period)       {}
func (nopObserver) Stopped(Period)       {}
func (nopObserver) Failed(Period, error) {}
