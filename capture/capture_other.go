//go:build !darwin

package capture

import (
	"context"
	"errors"

	"go.mgrd.me/perq/internal/types"
)

var errUnsupported = errors.New("screen capture requires macOS")

func grabRegion(ctx context.Context, r types.Region, path string) error {
	return errUnsupported
}

func grabWindow(ctx context.Context, windowID int, path string) error {
	return errUnsupported
}

func grabScreen(ctx context.Context, path string) error {
	return errUnsupported
}

func windowUnderCursor() (*Window, error) {
	return nil, errUnsupported
}
