package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Temp files this tool creates, current and historical names. Orphans
// appear when a previous run died mid-session.
var tempPatterns = []string{
	"perplexity_screenshot_*.png",
	"perplexity_audio_*.wav",
	"perplexity_temp*.png",
	"region_*.txt",
}

const tempMaxAge = time.Hour

// CleanupTempFiles removes orphaned temp files older than an hour.
// Files younger than that may belong to a concurrently running session
// and are left alone.
func CleanupTempFiles(log *slog.Logger) {
	cleanupTempDir(os.TempDir(), time.Now(), log)
}

func cleanupTempDir(dir string, now time.Time, log *slog.Logger) {
	var removed int
	for _, pattern := range tempPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || now.Sub(info.ModTime()) < tempMaxAge {
				continue
			}
			if err := os.Remove(path); err != nil {
				log.Warn("remove orphaned temp file", "path", path, "error", err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		log.Info("removed orphaned temp files", "count", removed)
	}
}
