// Package permission answers whether the OS grants this process the
// capabilities it needs: microphone capture, screen recording, and
// accessibility for the global key hook. On platforms without a grant
// model everything reports granted.
package permission

// Error reports a missing OS grant. The affected capability fails;
// unrelated capabilities keep working.
type Error struct {
	Capability string
}

func (e *Error) Error() string {
	return e.Capability + " permission not granted"
}
