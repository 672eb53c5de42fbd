//go:build !darwin

package permission

// HasMicrophone reports whether microphone access has been granted.
// No grant model here, so access is assumed.
func HasMicrophone() bool {
	return true
}

// HasScreenRecording reports whether screen recording access has been granted.
func HasScreenRecording() bool {
	return true
}

// HasAccessibility reports whether the process is trusted for
// accessibility. Global key monitoring and synthetic input need this.
func HasAccessibility() bool {
	return true
}

// RequestMicrophone triggers the system microphone prompt if the user
// has not decided yet. The decision arrives asynchronously.
func RequestMicrophone() {}

// RequestScreenRecording triggers the system screen recording prompt.
func RequestScreenRecording() {}

// Missing returns the names of permissions that are not granted.
// Permission checks only exist on macOS, so this reports nothing.
func Missing(needScreen bool) []string {
	return nil
}
