// Package doctor runs environment diagnostics for the dictation daemon.
package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"voxd/config"
	"voxd/hotkey"
	"voxd/inject"
	"voxd/listen"
	"voxd/notify"
)

const testPhrase = "voxd doctor test"

// Doctor holds the probes each check runs against. Zero-valued optional
// fields skip their check.
type Doctor struct {
	In  io.Reader
	Out io.Writer

	SessionType string
	Prober      inject.Prober
	NewTyper    func(inject.Tool) listen.Typer

	Notifier notify.Notifier

	// Models lists the endpoint's model ids; Want is the id the daemon
	// will request.
	Models func(ctx context.Context) ([]string, error)
	Want   string

	Mic     listen.Opener
	Session config.Session
	Listen  time.Duration

	Hotkey func() hotkey.Hotkey
	Chord  hotkey.Chord

	// Interactive asks the user to confirm what they saw and heard.
	Interactive bool

	reader *bufio.Reader
}

type check struct {
	name string
	run  func(*Doctor) bool
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func (d *Doctor) Run() int {
	d.reader = bufio.NewReader(d.In)

	checks := []check{{"Session and text injection", (*Doctor).checkInjection}}
	if d.Notifier != nil {
		checks = append(checks, check{"Desktop notifications", (*Doctor).checkNotify})
	}
	if d.Models != nil {
		checks = append(checks, check{"Transcription endpoint", (*Doctor).checkEndpoint})
	}
	if d.Mic != nil {
		checks = append(checks, check{"Microphone and transcription", (*Doctor).checkMic})
	}
	if d.Hotkey != nil {
		checks = append(checks, check{"Hotkey detection", (*Doctor).checkHotkey})
	}

	d.printf("voxd doctor - system diagnostics\n")
	d.printf("================================\n")

	allPass := true
	for i, c := range checks {
		d.printf("\n[%d/%d] %s\n", i+1, len(checks), c.name)
		if !c.run(d) {
			allPass = false
		}
	}

	d.printf("\n")
	if allPass {
		d.printf("All checks passed!\n")
		return 0
	}
	d.printf("Some checks failed. See details above.\n")
	return 1
}

func (d *Doctor) printf(format string, args ...any) {
	fmt.Fprintf(d.Out, format, args...)
}

func (d *Doctor) pass(format string, args ...any) bool {
	d.printf("  PASS: "+format+"\n", args...)
	return true
}

func (d *Doctor) fail(format string, args ...any) bool {
	d.printf("  FAIL: "+format+"\n", args...)
	return false
}

// confirm asks a y/n question. Non-interactive runs assume yes.
func (d *Doctor) confirm(question string) bool {
	if !d.Interactive {
		return true
	}
	d.printf("%s [y/n]: ", question)
	answer, _ := d.reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func (d *Doctor) countdown(n int) {
	if !d.Interactive {
		return
	}
	for i := n; i > 0; i-- {
		d.printf("  %d...\n", i)
		time.Sleep(time.Second)
	}
}

func (d *Doctor) checkInjection() bool {
	session := d.SessionType
	if session == "" {
		session = "unknown"
	}
	d.printf("  Session type: %s\n", session)

	tool := inject.Select(d.SessionType, d.Prober)
	if tool == inject.None {
		for _, hint := range inject.InstallHint(d.SessionType) {
			d.printf("  %s\n", hint)
		}
		return d.fail("%v", inject.ErrNoTool)
	}
	d.printf("  Injector: %s\n", tool)
	if d.NewTyper == nil || !d.Interactive {
		return d.pass("%s selected", tool)
	}

	d.printf("Focus on a text editor window...\n")
	d.countdown(5)
	if err := d.NewTyper(tool).Type(testPhrase); err != nil {
		return d.fail("typing failed: %v", err)
	}
	resetTerminal()
	if !d.confirm(fmt.Sprintf("Did the text %q appear?", testPhrase)) {
		return d.fail("typed text not confirmed")
	}
	return d.pass("text injection verified by user")
}

func (d *Doctor) checkNotify() bool {
	d.Notifier.Notify(notify.AppName, "voxd doctor test notification")
	if !d.confirm("Did a notification appear?") {
		return d.fail("notification not confirmed")
	}
	return d.pass("notification sent")
}

func (d *Doctor) checkEndpoint() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := d.Models(ctx)
	if err != nil {
		return d.fail("cannot reach endpoint: %v", err)
	}
	d.printf("  %d model(s) available\n", len(ids))
	if d.Want != "" && !slices.Contains(ids, d.Want) {
		d.printf("  Warning: %s not listed; run: voxd models --model <name>\n", d.Want)
	}
	return d.pass("endpoint reachable")
}

func (d *Doctor) checkMic() bool {
	wait := d.Listen
	if wait <= 0 {
		wait = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	src, err := d.Mic.Open(ctx, d.Session)
	if err != nil {
		return d.fail("cannot open microphone: %v", err)
	}
	defer src.Close()

	d.printf("Speak a short sentence now...\n")
	text, err := src.Next(ctx, nil)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return d.fail("no speech detected within %s", wait)
	case err != nil:
		return d.fail("transcription error: %v", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = "(no speech detected)"
	}
	d.printf("\n  Transcribed text: %s\n\n", text)
	if !d.confirm("Is this correct?") {
		return d.fail("transcription not confirmed")
	}
	return d.pass("microphone and transcription working")
}

func (d *Doctor) checkHotkey() bool {
	msg, err := hotkey.Diagnose()
	if err != nil {
		return d.fail("%v", err)
	}
	d.printf("  %s\n", msg)
	if !d.Interactive {
		return d.pass("hotkey available")
	}

	d.printf("Press %s...\n", d.Chord)
	hk := d.Hotkey()
	if err := hk.Register(); err != nil {
		return d.fail("could not register hotkey: %v", err)
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return d.pass("hotkey detected")
	case <-time.After(10 * time.Second):
		return d.fail("timeout waiting for hotkey")
	}
}
