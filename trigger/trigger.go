// Package trigger turns global key events into push-to-talk edges.
//
// Two logical triggers are supported, one per capture mode. Each produces
// a single Activated edge when its key goes down and a Deactivated edge
// when it comes back up; OS auto-repeat while held is suppressed.
package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vcaesar/keycode"
)

// Kind identifies which capture mode a trigger drives.
type Kind int

const (
	KindScreenshot Kind = iota
	KindAudioOnly
)

func (k Kind) String() string {
	switch k {
	case KindScreenshot:
		return "screenshot"
	case KindAudioOnly:
		return "audio-only"
	default:
		return "unknown"
	}
}

// Event is one activation edge of a trigger.
type Event struct {
	Kind      Kind
	Activated bool
	At        time.Time
}

// Key is a resolved trigger key: either a key name understood by the
// hook layer ("f9", "insert") or an explicit OS rawcode for pedals that
// present as exotic keys ("rawcode:101").
type Key struct {
	Name    string
	Rawcode uint16
	ByRaw   bool
}

// ParseKey parses a configured trigger key string. Named keys must exist
// in the OS key map; pedals presenting as unnamed keys use rawcode:<n>.
func ParseKey(s string) (Key, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Key{}, fmt.Errorf("trigger key empty")
	}

	if raw, ok := strings.CutPrefix(s, "rawcode:"); ok {
		code, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return Key{}, fmt.Errorf("parse rawcode %q: %w", raw, err)
		}
		return Key{Rawcode: uint16(code), ByRaw: true}, nil
	}
	if _, ok := keycode.Keycode[s]; !ok {
		return Key{}, fmt.Errorf("unknown trigger key %q (use rawcode:<n> for unnamed keys)", s)
	}
	return Key{Name: s}, nil
}

func (k Key) String() string {
	if k.ByRaw {
		return fmt.Sprintf("rawcode:%d", k.Rawcode)
	}
	return k.Name
}

// Monitor delivers trigger edges from a global input hook.
type Monitor interface {
	// Start begins listening and returns the edge channel. The channel
	// closes when the monitor stops.
	Start() (<-chan Event, error)
	// Stop tears the hook down and closes the edge channel.
	Stop()
}

// tracker suppresses key auto-repeat: while a trigger is held, further
// down events for it are swallowed.
type tracker struct {
	held map[Kind]bool
}

func newTracker() *tracker {
	return &tracker{held: make(map[Kind]bool)}
}

// edge records a raw down/up transition and reports whether it is a real
// activation edge.
func (t *tracker) edge(kind Kind, down bool) bool {
	if down {
		if t.held[kind] {
			return false
		}
		t.held[kind] = true
		return true
	}
	if !t.held[kind] {
		return false
	}
	t.held[kind] = false
	return true
}
