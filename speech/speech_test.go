package speech

import (
	"strings"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	s := New(Config{}, nil)
	if s.cfg.RateWPM != 200 {
		t.Errorf("RateWPM = %d, want 200", s.cfg.RateWPM)
	}
	if s.cfg.MaxChars != 700 {
		t.Errorf("MaxChars = %d, want 700", s.cfg.MaxChars)
	}
}

func TestTruncate(t *testing.T) {
	s := New(Config{MaxChars: 10}, nil)

	if got := s.truncate("short"); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}

	long := strings.Repeat("ab", 20)
	got := s.truncate(long)
	if len([]rune(got)) != 11 {
		t.Errorf("truncated length = %d runes, want 10 plus ellipsis", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncate() = %q, want ellipsis suffix", got)
	}
}

func TestTruncateMultibyte(t *testing.T) {
	s := New(Config{MaxChars: 3}, nil)
	if got := s.truncate("日本語のテスト"); got != "日本語…" {
		t.Errorf("truncate() = %q, want rune-safe cut", got)
	}
}
