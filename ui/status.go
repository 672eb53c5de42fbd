// Package ui holds the user-facing surfaces outside the browser: the
// terminal status line with its live level meter, desktop notifications,
// and the menu bar item.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"go.mgrd.me/perq/internal/types"
)

// Level meter scaling. An RMS above levelSpeech reads as speech, above
// levelFaint as faint audio, anything lower as room noise.
const (
	meterScale  = 50
	meterMax    = 40
	levelSpeech = 0.02
	levelFaint  = 0.01
)

var (
	colorGreen  = lipgloss.Color("#22C55E")
	colorYellow = lipgloss.Color("#EAB308")
	colorRed    = lipgloss.Color("#EF4444")
	colorCyan   = lipgloss.Color("#06B6D4")
	colorGray   = lipgloss.Color("#6B7280")

	styleRecording = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	styleElapsed   = lipgloss.NewStyle().Foreground(colorCyan)
	styleSpeech    = lipgloss.NewStyle().Foreground(colorGreen)
	styleFaint     = lipgloss.NewStyle().Foreground(colorYellow)
	styleQuiet     = lipgloss.NewStyle().Foreground(colorGray)
	styleTitle     = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	styleKey       = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	styleDim       = lipgloss.NewStyle().Foreground(colorGray)
	styleErr       = lipgloss.NewStyle().Foreground(colorRed)
)

// Meter repaints a single-line recording indicator in place.
type Meter struct {
	w     io.Writer
	width int
}

func NewMeter(w io.Writer) *Meter { return &Meter{w: w} }

// Update redraws the bar for the current RMS level.
func (m *Meter) Update(level float64, elapsed time.Duration) {
	line := renderMeter(level, elapsed)
	pad := m.width - lipgloss.Width(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprint(m.w, "\r", line, strings.Repeat(" ", pad))
	m.width = lipgloss.Width(line)
}

// Done erases the meter line and returns the cursor to column zero.
func (m *Meter) Done() {
	if m.width == 0 {
		return
	}
	fmt.Fprint(m.w, "\r", strings.Repeat(" ", m.width), "\r")
	m.width = 0
}

func renderMeter(level float64, elapsed time.Duration) string {
	glyph, cells := meterBar(level)
	seg := strings.Repeat(string(glyph), cells)
	var bar string
	switch glyph {
	case '█':
		bar = styleSpeech.Render(seg)
	case '▓':
		bar = styleFaint.Render(seg)
	default:
		bar = styleQuiet.Render(seg)
	}
	secs := int(elapsed.Seconds())
	stamp := fmt.Sprintf("[%02d:%02d]", secs/60, secs%60)
	return styleRecording.Render("● recording") + " " + styleElapsed.Render(stamp) + " " + bar
}

// meterBar maps an RMS level to a bar glyph and cell count.
func meterBar(level float64) (rune, int) {
	cells := int(level * meterScale)
	if cells > meterMax {
		cells = meterMax
	}
	switch {
	case level > levelSpeech:
		return '█', cells
	case level > levelFaint:
		return '▓', cells
	default:
		if cells < 1 {
			cells = 1
		}
		return '░', cells
	}
}

// Banner prints the ready message with the two trigger hints.
func Banner(w io.Writer, screenshotKey, audioKey string) {
	fmt.Fprintln(w, styleTitle.Render("perq ready"))
	fmt.Fprintf(w, "  %s  hold, speak, release: screenshot + audio (drag the overlay for a region)\n",
		styleKey.Render(screenshotKey))
	fmt.Fprintf(w, "  %s  hold, speak, release: audio only\n", styleKey.Render(audioKey))
	fmt.Fprintln(w, styleDim.Render("  ctrl+c quits"))
}

// Transcript echoes the transcript that is about to be dispatched.
func Transcript(w io.Writer, text string) {
	fmt.Fprintf(w, "%s %s\n", styleSpeech.Render("✓"), text)
}

const sessionTextMax = 80

// SessionLine renders one journal entry for the history listing.
func SessionLine(rec types.SessionRecord) string {
	status := fmt.Sprintf("%-10s", string(rec.Status))
	switch rec.Status {
	case types.SessionDispatched:
		status = styleSpeech.Render(status)
	case types.SessionFailed:
		status = styleErr.Render(status)
	default:
		status = styleDim.Render(status)
	}
	text := rec.Transcript
	if rec.Status == types.SessionFailed && rec.Error != "" {
		text = rec.Error
	}
	if r := []rune(text); len(r) > sessionTextMax {
		text = string(r[:sessionTextMax-1]) + "…"
	}
	return fmt.Sprintf("%s  %-10s %s %s",
		styleDim.Render(rec.StartedAt.Format("2006-01-02 15:04:05")),
		rec.Mode, status, text)
}
