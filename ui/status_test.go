package ui

import (
	"strings"
	"testing"
	"time"

	"go.mgrd.me/perq/internal/types"
)

func TestMeterBar(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		glyph rune
		cells int
	}{
		{"speech", 0.1, '█', 5},
		{"loud speech capped", 1.0, '█', meterMax},
		{"faint", 0.015, '▓', 0},
		{"quiet floor", 0.005, '░', 1},
		{"silence floor", 0, '░', 1},
		{"speech boundary stays faint", 0.02, '▓', 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			glyph, cells := meterBar(tt.level)
			if glyph != tt.glyph || cells != tt.cells {
				t.Errorf("meterBar(%v) = %q, %d, want %q, %d", tt.level, glyph, cells, tt.glyph, tt.cells)
			}
		})
	}
}

func TestRenderMeterElapsed(t *testing.T) {
	line := renderMeter(0.05, 85*time.Second)
	if !strings.Contains(line, "[01:25]") {
		t.Errorf("renderMeter missing elapsed stamp: %q", line)
	}
	if !strings.Contains(line, "recording") {
		t.Errorf("renderMeter missing label: %q", line)
	}
}

func TestMeterRepaintErasesShorterLines(t *testing.T) {
	var buf strings.Builder
	m := NewMeter(&buf)
	m.Update(0.5, time.Second) // wide bar
	m.Update(0, time.Second)   // narrow bar must blank the remainder
	out := buf.String()
	last := out[strings.LastIndexByte(out, '\r')+1:]
	if !strings.HasSuffix(last, " ") {
		t.Errorf("second repaint did not pad over the first: %q", last)
	}

	m.Done()
	if !strings.HasSuffix(buf.String(), "\r") {
		t.Error("Done should leave the cursor at column zero")
	}
}

func TestSessionLineTruncates(t *testing.T) {
	rec := types.SessionRecord{
		ID:         "a",
		Mode:       "audio-only",
		StartedAt:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		Transcript: strings.Repeat("x", 200),
		Status:     types.SessionDispatched,
	}
	line := SessionLine(rec)
	if !strings.Contains(line, "2025-06-01 10:30:00") {
		t.Errorf("missing timestamp: %q", line)
	}
	if !strings.Contains(line, "…") {
		t.Errorf("long transcript not truncated: %q", line)
	}
	if strings.Contains(line, strings.Repeat("x", sessionTextMax+1)) {
		t.Errorf("transcript exceeds limit: %q", line)
	}
}

func TestSessionLineShowsErrorForFailed(t *testing.T) {
	rec := types.SessionRecord{
		ID:        "b",
		Mode:      "screenshot",
		StartedAt: time.Now(),
		Status:    types.SessionFailed,
		Error:     "tab not found",
	}
	if line := SessionLine(rec); !strings.Contains(line, "tab not found") {
		t.Errorf("failed session should show its error: %q", line)
	}
}
