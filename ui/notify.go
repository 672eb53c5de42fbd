package ui

import "github.com/gen2brain/beeep"

const notifyTitle = "perq"

// Notify shows a desktop notification. Best effort: delivery failures
// are not actionable and are dropped.
func Notify(message string) {
	_ = beeep.Notify(notifyTitle, message, "")
}
