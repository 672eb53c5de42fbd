// Package capture produces the screenshot that accompanies a dispatch.
//
// The capture path degrades in stages. A region picked in the overlay is
// grabbed directly. When the overlay is disabled, cancelled or fails,
// the frontmost eligible window under the cursor is grabbed instead,
// and with no such window the whole screen is.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.mgrd.me/perq/internal/types"
	"go.mgrd.me/perq/permission"
)

// Screenshots smaller than this are treated as failed captures.
const minValidBytes = 1000

// ErrTooSmall reports a capture whose output file is implausibly small.
var ErrTooSmall = errors.New("screenshot file too small")

// Windows below these bounds never count as capture targets.
const (
	minWindowSide  = 100
	minWindowAlpha = 0.5
)

// Owners whose windows are skipped when looking under the cursor.
// These are the tools the user is typically driving the assistant from.
var skipOwners = map[string]bool{
	"Terminal":     true,
	"iTerm2":       true,
	"iTerm":        true,
	"Code":         true,
	"Cursor":       true,
	"WindowServer": true,
	"Dock":         true,
}

// Window describes one on-screen window.
type Window struct {
	ID     int
	Owner  string
	Bounds types.Region
	Layer  int
	Alpha  float64
}

// eligible reports whether a window may serve as a capture target.
func eligible(w Window) bool {
	if w.Layer != 0 {
		return false
	}
	if w.Bounds.Width < minWindowSide || w.Bounds.Height < minWindowSide {
		return false
	}
	if w.Alpha < minWindowAlpha {
		return false
	}
	return !skipOwners[w.Owner]
}

// Selector picks a screen region interactively.
type Selector interface {
	Select(ctx context.Context) (types.Region, error)
}

// Capturer takes screenshots for dispatch.
type Capturer struct {
	selector Selector // nil disables the overlay path
	log      *slog.Logger
}

// New creates a Capturer. A nil selector skips straight to the
// window-under-cursor path.
func New(selector Selector, log *slog.Logger) *Capturer {
	if log == nil {
		log = slog.Default()
	}
	return &Capturer{selector: selector, log: log}
}

// Capture takes a screenshot and returns the path of the finished file.
// The caller owns the file and removes it after use.
func (c *Capturer) Capture(ctx context.Context) (string, error) {
	if !permission.HasScreenRecording() {
		return "", &permission.Error{Capability: "screen recording"}
	}

	path := tempImagePath()

	if err := c.grab(ctx, path); err != nil {
		return "", err
	}
	if err := validateFile(path); err != nil {
		os.Remove(path)
		return "", err
	}

	if err := enhance(path); err != nil {
		// The raw capture is still usable.
		c.log.Warn("screenshot enhancement failed", "error", err)
	}
	return path, nil
}

func (c *Capturer) grab(ctx context.Context, path string) error {
	if c.selector != nil {
		region, err := c.selector.Select(ctx)
		switch {
		case err == nil && region.Valid():
			c.log.Debug("capturing selected region",
				"x", region.X, "y", region.Y, "w", region.Width, "h", region.Height)
			return grabRegion(ctx, region, path)
		case err != nil:
			c.log.Info("region selection unavailable, trying window", "reason", err)
		default:
			c.log.Info("selected region too small, trying window",
				"w", region.Width, "h", region.Height)
		}
	}

	win, err := windowUnderCursor()
	if err == nil && win != nil {
		c.log.Debug("capturing window under cursor", "owner", win.Owner, "id", win.ID)
		if err := grabWindow(ctx, win.ID, path); err == nil {
			return nil
		}
		c.log.Warn("window capture failed, falling back to full screen", "owner", win.Owner)
	} else if err != nil {
		c.log.Debug("window lookup failed", "error", err)
	}

	c.log.Debug("capturing full screen")
	return grabScreen(ctx, path)
}

func tempImagePath() string {
	name := fmt.Sprintf("perplexity_screenshot_%d.png", time.Now().UnixNano())
	return filepath.Join(os.TempDir(), name)
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat screenshot: %w", err)
	}
	if info.Size() <= minValidBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooSmall, info.Size())
	}
	return nil
}
