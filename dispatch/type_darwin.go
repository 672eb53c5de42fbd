//go:build darwin

package dispatch

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
)

// pasteClipboard types text by putting it on the clipboard and sending
// cmd+v to the focused element. The previous clipboard contents are
// restored afterwards.
func pasteClipboard(text string) error {
	previous, _ := clipboard.ReadAll()

	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	robotgo.KeyTap("v", "cmd")

	// Give the paste a moment to land before the clipboard changes back.
	time.Sleep(150 * time.Millisecond)
	if previous != "" {
		if err := clipboard.WriteAll(previous); err != nil {
			return fmt.Errorf("restore clipboard: %w", err)
		}
	}
	return nil
}
