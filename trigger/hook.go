package trigger

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"go.mgrd.me/perq/permission"
)

// ErrMonitorRunning is returned when starting an already started monitor.
var ErrMonitorRunning = errors.New("trigger monitor already running")

// HookMonitor implements Monitor on top of a global OS input hook.
type HookMonitor struct {
	keys map[Kind]Key

	mu      sync.Mutex
	running bool
	out     chan Event
	done    chan struct{}
}

// NewHookMonitor builds a monitor for the two configured trigger keys.
func NewHookMonitor(screenshot, audioOnly Key) *HookMonitor {
	return &HookMonitor{
		keys: map[Kind]Key{
			KindScreenshot: screenshot,
			KindAudioOnly:  audioOnly,
		},
	}
}

// Start installs the global hook and begins delivering edges. The hook
// channel is consumed on a dedicated goroutine; edges are forwarded
// without blocking so a slow consumer can never stall the OS hook.
// Without the accessibility grant the OS delivers no events at all, so
// that case is an error rather than a silently dead hook.
func (m *HookMonitor) Start() (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil, ErrMonitorRunning
	}
	if !permission.HasAccessibility() {
		return nil, &permission.Error{Capability: "accessibility"}
	}

	m.out = make(chan Event, 16)
	m.done = make(chan struct{})
	m.running = true

	events := hook.Start()
	go m.consume(events)

	slog.Info("trigger monitor started",
		"screenshot_key", m.keys[KindScreenshot].String(),
		"audio_key", m.keys[KindAudioOnly].String())
	return m.out, nil
}

func (m *HookMonitor) consume(events chan hook.Event) {
	defer close(m.out)
	defer close(m.done)

	tr := newTracker()
	for ev := range events {
		var down bool
		switch ev.Kind {
		case hook.KeyDown:
			down = true
		case hook.KeyUp:
			down = false
		default:
			continue
		}

		kind, ok := m.match(ev)
		if !ok {
			continue
		}
		if !tr.edge(kind, down) {
			continue
		}

		e := Event{Kind: kind, Activated: down, At: time.Now()}
		select {
		case m.out <- e:
		default:
			slog.Warn("trigger edge dropped, consumer behind", "kind", kind.String(), "activated", down)
		}
	}
}

// match resolves a hook event to one of the configured triggers.
func (m *HookMonitor) match(ev hook.Event) (Kind, bool) {
	var name string
	for kind, key := range m.keys {
		if key.ByRaw {
			if ev.Rawcode == key.Rawcode {
				return kind, true
			}
			continue
		}
		if name == "" {
			name = strings.ToLower(hook.RawcodetoKeychar(ev.Rawcode))
		}
		if name == key.Name {
			return kind, true
		}
	}
	return 0, false
}

// Stop removes the hook and closes the edge channel. Safe to call twice.
func (m *HookMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	<-done
	slog.Info("trigger monitor stopped")
}
