package tray

import (
	"github.com/energye/systray"

	"voxd/log"
)

var (
	mToggle *systray.MenuItem
	mModel  *systray.MenuItem
	mLogin  *systray.MenuItem
	endLoop func()
)

// Init registers the tray icon and returns a channel closed when the
// user picks Quit.
func Init() <-chan struct{} {
	start, end := systray.RunWithExternalLoop(onReady, onExit)
	endLoop = end
	start()
	return quitCh
}

// Close removes the icon.
func Close() {
	if endLoop != nil {
		endLoop()
	}
}

func updateListening(on bool) {
	if on {
		systray.SetIcon(iconActive)
	} else {
		systray.SetIcon(iconIdle)
	}
	systray.SetTooltip(Tooltip(on))
	if mToggle != nil {
		mToggle.SetTitle(ToggleTitle(on))
	}
}

func updateTooltip(msg string) {
	systray.SetTooltip(msg)
}

func onReady() {
	systray.SetIcon(iconIdle)
	systray.SetTitle(appTitle)
	systray.SetTooltip(Tooltip(false))
	systray.SetOnClick(func(systray.IMenu) { toggle() })

	mToggle = systray.AddMenuItem(ToggleTitle(false), "Start or stop dictation")
	mToggle.Click(toggle)

	stateMu.Lock()
	m := model
	stateMu.Unlock()
	mModel = systray.AddMenuItem(ModelTitle(m), "Speech model in use")
	mModel.Disable()

	systray.AddSeparator()

	mLogin = systray.AddMenuItemCheckbox("Start on Login", "Launch the daemon when you log in", loginOn)
	mLogin.Click(func() {
		want := !mLogin.Checked()
		if loginCb != nil {
			if err := loginCb(want); err != nil {
				log.Errorf("start on login: %v", err)
				return
			}
		}
		if want {
			mLogin.Check()
		} else {
			mLogin.Uncheck()
		}
	})

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit voice dictation")
	mQuit.Click(Quit)
	systray.CreateMenu()
}

func onExit() {
	Quit()
}
