package doctor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"voxd/config"
	"voxd/inject"
	"voxd/listen"
)

type fakeProber struct{ tools map[string]bool }

func (f fakeProber) OnPath(name string) bool { return f.tools[name] }
func (f fakeProber) Running(string) bool     { return false }

type fakeNotifier struct{ titles []string }

func (f *fakeNotifier) Notify(title, _ string) { f.titles = append(f.titles, title) }

type fakeSource struct {
	text string
	err  error
}

func (s fakeSource) Next(ctx context.Context, _ func(string)) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.text == "" {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, nil
}

func (fakeSource) Close() error { return nil }

type fakeMic struct {
	src     fakeSource
	openErr error
}

func (m fakeMic) Open(context.Context, config.Session) (listen.Source, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.src, nil
}

type fakeTyper struct{ typed []string }

func (f *fakeTyper) Type(text string) error {
	f.typed = append(f.typed, text)
	return nil
}

func newDoctor(out *bytes.Buffer) *Doctor {
	return &Doctor{
		In:          strings.NewReader(""),
		Out:         out,
		SessionType: "x11",
		Prober:      fakeProber{tools: map[string]bool{"xdotool": true}},
	}
}

func TestAllPass(t *testing.T) {
	var out bytes.Buffer
	n := &fakeNotifier{}
	d := newDoctor(&out)
	d.Notifier = n
	d.Models = func(context.Context) ([]string, error) {
		return []string{"Systran/faster-whisper-small.en"}, nil
	}
	d.Want = "Systran/faster-whisper-small.en"
	d.Mic = fakeMic{src: fakeSource{text: " hello world "}}

	if code := d.Run(); code != 0 {
		t.Fatalf("exit code = %d\n%s", code, out.String())
	}
	got := out.String()
	for _, want := range []string{
		"[1/4] Session and text injection",
		"Injector: xdotool",
		"[3/4] Transcription endpoint",
		"Transcribed text: hello world",
		"All checks passed!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Warning:") {
		t.Errorf("unexpected warning:\n%s", got)
	}
	if len(n.titles) != 1 {
		t.Errorf("notifications = %v", n.titles)
	}
}

func TestNoInjector(t *testing.T) {
	var out bytes.Buffer
	d := newDoctor(&out)
	d.SessionType = "wayland"
	d.Prober = fakeProber{}

	if code := d.Run(); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	got := out.String()
	if !strings.Contains(got, "FAIL: "+inject.ErrNoTool.Error()) {
		t.Errorf("output:\n%s", got)
	}
	if !strings.Contains(got, "Some checks failed.") {
		t.Errorf("output:\n%s", got)
	}
}

func TestEndpointDown(t *testing.T) {
	var out bytes.Buffer
	d := newDoctor(&out)
	d.Models = func(context.Context) ([]string, error) { return nil, errors.New("connection refused") }

	if code := d.Run(); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "FAIL: cannot reach endpoint: connection refused") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestEndpointMissingModelWarns(t *testing.T) {
	var out bytes.Buffer
	d := newDoctor(&out)
	d.Models = func(context.Context) ([]string, error) { return []string{"other"}, nil }
	d.Want = "Systran/faster-whisper-tiny.en"

	if code := d.Run(); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "Warning: Systran/faster-whisper-tiny.en not listed") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestMicFailures(t *testing.T) {
	tests := []struct {
		name string
		mic  fakeMic
		want string
	}{
		{"open", fakeMic{openErr: errors.New("no capture devices found")}, "cannot open microphone: no capture devices found"},
		{"silence", fakeMic{}, "no speech detected within"},
		{"endpoint", fakeMic{src: fakeSource{err: errors.New("boom")}}, "transcription error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d := newDoctor(&out)
			d.Mic = tt.mic
			d.Listen = 20 * time.Millisecond
			if code := d.Run(); code != 1 {
				t.Fatalf("exit code = %d", code)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestInteractiveConfirm(t *testing.T) {
	var out bytes.Buffer
	d := newDoctor(&out)
	d.Interactive = true
	d.Prober = fakeProber{tools: map[string]bool{"xdotool": true}}
	d.Notifier = &fakeNotifier{}
	d.In = strings.NewReader("n\n")

	// The typer is left nil so injection passes without a countdown; the
	// notification question reads the "n".
	if code := d.Run(); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "FAIL: notification not confirmed") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestInjectionTypesPhrase(t *testing.T) {
	var out bytes.Buffer
	typer := &fakeTyper{}
	d := newDoctor(&out)
	d.NewTyper = func(inject.Tool) listen.Typer { return typer }

	if code := d.Run(); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	// Non-interactive runs never type into whatever window has focus.
	if len(typer.typed) != 0 {
		t.Errorf("typed = %v", typer.typed)
	}
}
