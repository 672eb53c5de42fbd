//go:build darwin

package speech

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Speak reads the text asynchronously through the built-in say command.
func (s *Speaker) Speak(text string) error {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return nil
	}
	msg = s.truncate(msg)

	args := []string{}
	if s.cfg.Voice != "" {
		args = append(args, "-v", s.cfg.Voice)
	}
	args = append(args, "-r", strconv.Itoa(s.cfg.RateWPM), msg)

	cmd := exec.Command("say", args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start say: %w", err)
	}
	// Reap the process when it finishes speaking.
	go func() {
		if err := cmd.Wait(); err != nil {
			s.log.Debug("say exited", "error", err)
		}
	}()
	return nil
}
