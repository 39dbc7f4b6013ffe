package main

import (
	"voxd/listen"
	"voxd/notify"
	"voxd/tray"
)

const errorTitle = "Voice Dictation Error"

// indicator is the visible listening state.
type indicator interface {
	SetListening(on bool)
	SetError(msg string)
}

type trayIndicator struct{}

func (trayIndicator) SetListening(on bool) { tray.SetListening(on) }
func (trayIndicator) SetError(msg string)  { tray.SetError(msg) }

type nopIndicator struct{}

func (nopIndicator) SetListening(bool) {}
func (nopIndicator) SetError(string)   {}

type cues interface {
	PlayStart()
	PlayStop()
	PlayError()
}

// daemonObserver turns state changes into tray, sound and notification
// side effects. It runs on the machine's control goroutine.
type daemonObserver struct {
	ind      indicator
	cues     cues
	notifier notify.Notifier
}

func (o *daemonObserver) Started(listen.Period) {
	o.ind.SetListening(true)
	o.cues.PlayStart()
	o.notifier.Notify(notify.AppName, "Listening... Speak now!")
}

func (o *daemonObserver) Stopped(listen.Period) {
	o.ind.SetListening(false)
	o.cues.PlayStop()
	o.notifier.Notify(notify.AppName, "Stopped listening")
}

func (o *daemonObserver) Failed(_ listen.Period, err error) {
	o.ind.SetListening(false)
	o.ind.SetError(err.Error())
	o.cues.PlayError()
	o.notifier.Notify(errorTitle, err.Error())
}
