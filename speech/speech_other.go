//go:build !darwin

package speech

// Speak reads the text aloud. Only implemented on macOS.
func (s *Speaker) Speak(text string) error {
	return nil
}
