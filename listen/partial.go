package listen

import (
	"strings"
	"unicode"
)

// Partial tracks the text of the current utterance already sent to the
// injector. It is owned by the worker goroutine.
type Partial struct {
	emitted string
}

// Advance returns the part of hyp not yet emitted. A hypothesis that does
// not extend what was emitted (the engine revised earlier words) yields
// nothing, as does a whitespace-only extension.
func (p *Partial) Advance(hyp string) (string, bool) {
	if !strings.HasPrefix(hyp, p.emitted) {
		return "", false
	}
	delta := hyp[len(p.emitted):]
	if strings.TrimLeftFunc(delta, unicode.IsSpace) == "" {
		return "", false
	}
	p.emitted = hyp
	return delta, true
}

func (p *Partial) Reset() {
	p.emitted = ""
}

func (p *Partial) Emitted() string {
	return p.emitted
}
