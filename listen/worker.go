package listen

import (
	"context"
	"errors"
	"io"
	"strings"
)

type eventKind int

const (
	evReady eventKind = iota
	evText
	evError
	evExited
)

// event is the only way a worker talks to the control loop.
type event struct {
	period string
	kind   eventKind
	text   string
	err    error
}

type worker struct {
	period Period
	cancel context.CancelFunc
	events chan<- event
}

func (w *worker) send(kind eventKind, text string, err error) {
	w.events <- event{period: w.period.ID, kind: kind, text: text, err: err}
}

func (w *worker) run(ctx context.Context, opener Opener) {
	defer w.send(evExited, "", nil)

	src, err := opener.Open(ctx, w.period.Session)
	if err != nil {
		if ctx.Err() == nil {
			w.send(evError, "", err)
		}
		return
	}
	defer src.Close()
	w.send(evReady, "", nil)

	stream := w.period.Session.WordByWord
	var buf Partial
	var onPartial func(string)
	if stream {
		onPartial = func(hyp string) {
			if d, ok := buf.Advance(hyp); ok {
				w.send(evText, d, nil)
			}
		}
	}

	for ctx.Err() == nil {
		buf.Reset()
		text, err := src.Next(ctx, onPartial)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			w.send(evError, "", err)
			return
		}
		if stream {
			onPartial(text)
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			w.send(evText, t, nil)
		}
	}
}
