package ui

import (
	_ "embed"

	"github.com/getlantern/systray"
)

//go:embed icons/idle.png
var iconIdle []byte

//go:embed icons/recording.png
var iconRecording []byte

// Tray is the menu bar item. Methods are safe from any goroutine once
// the onReady callback passed to RunTray has fired.
type Tray struct {
	last *systray.MenuItem
	quit *systray.MenuItem
}

// RunTray takes over the calling goroutine (the tray must own the main
// thread on macOS) and blocks until Quit. onReady receives the live tray.
func RunTray(onReady func(*Tray), onExit func()) {
	systray.Run(func() {
		systray.SetIcon(iconIdle)
		systray.SetTitle("")
		systray.SetTooltip("perq push-to-talk")

		t := &Tray{}
		t.last = systray.AddMenuItem("No transcript yet", "Most recent transcript")
		t.last.Disable()
		t.quit = systray.AddMenuItem("Quit", "Quit perq")
		onReady(t)
	}, onExit)
}

// Quit tears the tray down and unblocks RunTray.
func Quit() {
	systray.Quit()
}

// Idle restores the idle icon and clears any status text.
func (t *Tray) Idle() {
	systray.SetIcon(iconIdle)
	systray.SetTitle("")
}

// Recording switches to the recording icon.
func (t *Tray) Recording() {
	systray.SetIcon(iconRecording)
	systray.SetTitle("")
}

// Processing shows a transient status next to the icon.
func (t *Tray) Processing() {
	systray.SetTitle("Processing...")
}

// Error flags the last session as failed until the next state change.
func (t *Tray) Error() {
	systray.SetIcon(iconIdle)
	systray.SetTitle("Error")
}

const trayTranscriptMax = 60

// LastTranscript updates the transcript menu entry.
func (t *Tray) LastTranscript(s string) {
	if r := []rune(s); len(r) > trayTranscriptMax {
		s = string(r[:trayTranscriptMax-1]) + "…"
	}
	t.last.SetTitle(s)
}

// QuitRequested signals a click on the Quit menu item.
func (t *Tray) QuitRequested() <-chan struct{} {
	return t.quit.ClickedCh
}
