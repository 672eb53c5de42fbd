//go:build darwin

package dispatch

import (
	"context"
	"log/slog"
	"os/exec"
)

// focusBrowser brings Chrome to the foreground so the user sees the
// prompt being driven. DevTools activation raises the tab inside the
// window but not the window itself.
func focusBrowser(ctx context.Context, log *slog.Logger) {
	cmd := exec.CommandContext(ctx, "osascript", "-e",
		`tell application "Google Chrome" to activate`)
	if err := cmd.Run(); err != nil {
		log.Debug("activate chrome window", "error", err)
	}
}
