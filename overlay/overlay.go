// Package overlay implements the interactive region picker.
//
// The picker is a separate process. The parent side (Session) re-execs
// the binary with -overlay, the child side (Run) draws the selection UI
// and reports the chosen rectangle through a temp file. The child never
// outlives the recording session that spawned it.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.mgrd.me/perq/internal/types"
)

// ErrCancelled reports that no region was chosen, either because the
// user dismissed the picker or the session ended first.
var ErrCancelled = errors.New("region selection cancelled")

const cancelledMarker = "CANCELLED"

// Session spawns picker processes on behalf of recording sessions.
type Session struct {
	log *slog.Logger
}

// NewSession creates a Session.
func NewSession(log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{log: log}
}

// Select shows the picker and blocks until a region is chosen, the user
// cancels, or ctx ends. Cancelling ctx kills the picker process.
func (s *Session) Select(ctx context.Context) (types.Region, error) {
	exe, err := os.Executable()
	if err != nil {
		return types.Region{}, fmt.Errorf("locate executable: %w", err)
	}

	out := filepath.Join(os.TempDir(), fmt.Sprintf("region_%d.txt", time.Now().UnixNano()))
	defer os.Remove(out)

	start := time.Now()
	cmd := exec.CommandContext(ctx, exe, "-overlay", "-out", out)
	runErr := cmd.Run()

	if ctx.Err() != nil {
		s.log.Debug("picker closed with session", "after", time.Since(start))
		return types.Region{}, ErrCancelled
	}
	if runErr != nil {
		return types.Region{}, fmt.Errorf("overlay process: %w", runErr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		// Exited cleanly without reporting, e.g. closed from the dock.
		return types.Region{}, ErrCancelled
	}

	region, err := parseCoords(string(data))
	if err != nil {
		return types.Region{}, err
	}
	s.log.Debug("region selected", "after", time.Since(start),
		"w", region.Width, "h", region.Height)
	return region, nil
}

// parseCoords decodes the child's "x,y,w,h" report.
func parseCoords(s string) (types.Region, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == cancelledMarker {
		return types.Region{}, ErrCancelled
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.Region{}, fmt.Errorf("malformed region %q", s)
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return types.Region{}, fmt.Errorf("malformed region %q: %w", s, err)
		}
		vals[i] = v
	}

	return types.Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}
