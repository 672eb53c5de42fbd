//go:build !darwin

package dispatch

import "errors"

// pasteClipboard types text by pasting it from the clipboard. Only
// implemented on macOS; other platforms fall through to key events.
func pasteClipboard(text string) error {
	return errors.ErrUnsupported
}
