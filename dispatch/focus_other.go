//go:build !darwin

package dispatch

import (
	"context"
	"log/slog"
)

// focusBrowser brings Chrome to the foreground so the user sees the
// prompt being driven. Only implemented on macOS.
func focusBrowser(ctx context.Context, log *slog.Logger) {}
