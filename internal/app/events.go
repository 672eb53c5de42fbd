package app

import "go.mgrd.me/perq/trigger"

// Notifier receives session state changes for the user-facing surfaces
// (menu bar, terminal, desktop notifications). Implementations must be
// fast: Level in particular runs on the audio capture thread.
type Notifier interface {
	Started(kind trigger.Kind)
	Level(rms float32)
	Stopped()
	Processing()
	Dispatched(transcript string, research bool)
	Skipped(reason string)
	Failed(msg string)
}

// NopNotifier ignores every event.
type NopNotifier struct{}

func (NopNotifier) Started(trigger.Kind)    {}
func (NopNotifier) Level(float32)           {}
func (NopNotifier) Stopped()                {}
func (NopNotifier) Processing()             {}
func (NopNotifier) Dispatched(string, bool) {}
func (NopNotifier) Skipped(string)          {}
func (NopNotifier) Failed(string)           {}
