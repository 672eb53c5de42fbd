// Package speech reads short summaries aloud with the system voice.
package speech

import "log/slog"

const (
	defaultRateWPM = 200
	// Spoken output stays short. Past this the summary is truncated
	// with an ellipsis rather than read in full.
	defaultMaxChars = 700
)

// Config holds text-to-speech settings.
type Config struct {
	Voice    string // empty uses the system default voice
	RateWPM  int
	MaxChars int
}

// Speaker speaks text without blocking the caller.
type Speaker struct {
	cfg Config
	log *slog.Logger
}

// New creates a Speaker.
func New(cfg Config, log *slog.Logger) *Speaker {
	if log == nil {
		log = slog.Default()
	}
	if cfg.RateWPM <= 0 {
		cfg.RateWPM = defaultRateWPM
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	return &Speaker{cfg: cfg, log: log}
}

func (s *Speaker) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= s.cfg.MaxChars {
		return text
	}
	return string(runes[:s.cfg.MaxChars]) + "…"
}
