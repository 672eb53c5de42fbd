// Package types provides shared type definitions for the application.
package types

import "time"

// Region is a captured screen rectangle in global display coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// MinRegionSide is the smallest drag dimension treated as a deliberate
// selection; anything smaller falls back to window capture.
const MinRegionSide = 50

// Valid reports whether the region is a deliberate selection.
func (r Region) Valid() bool {
	return r.Width >= MinRegionSide && r.Height >= MinRegionSide
}

// Empty reports whether the region carries no area at all.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// EmotionScore is one ranked voice-emotion label.
type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SessionStatus describes how a capture session ended.
type SessionStatus string

const (
	SessionDispatched SessionStatus = "dispatched"
	SessionSkipped    SessionStatus = "skipped" // silence or empty transcript
	SessionFailed     SessionStatus = "failed"
)

// SessionRecord is the journal entry persisted after each session.
type SessionRecord struct {
	ID         string         `json:"id"`
	Mode       string         `json:"mode"` // "screenshot" or "audio-only"
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Region     *Region        `json:"region,omitempty"`
	Transcript string         `json:"transcript,omitempty"`
	Emotions   []EmotionScore `json:"emotions,omitempty"`
	Research   bool           `json:"research"`
	Status     SessionStatus  `json:"status"`
	Error      string         `json:"error,omitempty"`
}
