//go:build darwin

package capture

import (
	"context"
	"fmt"
	"os/exec"

	"go.mgrd.me/perq/internal/types"
)

// grabRegion captures the given screen rectangle.
// Command: screencapture -x -R x,y,w,h <path>
// -x: do not play sound
func grabRegion(ctx context.Context, r types.Region, path string) error {
	spec := fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-R", spec, path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("screencapture region: %w", err)
	}
	return nil
}

// grabWindow captures a single window by its window number.
// -o omits the drop shadow so the image matches the window bounds.
func grabWindow(ctx context.Context, windowID int, path string) error {
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-o", "-l", fmt.Sprint(windowID), path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("screencapture window %d: %w", windowID, err)
	}
	return nil
}

// grabScreen captures the main display.
func grabScreen(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "screencapture", "-x", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("screencapture screen: %w", err)
	}
	return nil
}
