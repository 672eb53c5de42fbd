package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// cleanupSystemPrompt keeps the model on task. Anything that smells
// like answering instead of cleaning gets discarded by the caller.
const cleanupSystemPrompt = `You clean up speech-to-text transcripts. ` +
	`Fix punctuation, capitalization, and obvious transcription mistakes. ` +
	`Do not answer questions in the transcript. Do not add, remove, or ` +
	`translate content. Return only the cleaned transcript with no commentary.`

// Transcripts may grow a little under cleanup (punctuation, expanded
// contractions) but an answer-shaped response grows a lot.
const cleanupGrowthLimit = 2

// Cleaner tidies raw transcripts with a fast LLM pass. It is strictly
// best effort: every failure mode returns the raw transcript.
type Cleaner struct {
	completer Completer
	timeout   time.Duration
	log       *slog.Logger
}

// NewCleaner creates a Cleaner around a Completer.
func NewCleaner(completer Completer, timeout time.Duration, log *slog.Logger) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{completer: completer, timeout: timeout, log: log}
}

// Clean returns the cleaned transcript, or the input unchanged when the
// cleanup is unavailable, slow, or suspicious.
func (c *Cleaner) Clean(ctx context.Context, transcript string) string {
	if c.completer == nil || strings.TrimSpace(transcript) == "" {
		return transcript
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	cleaned, err := c.completer.Complete(ctx, []Message{
		{Role: "system", Content: cleanupSystemPrompt},
		{Role: "user", Content: transcript},
	})
	if err != nil {
		c.log.Warn("transcript cleanup failed, using raw transcript", "error", err)
		return transcript
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		c.log.Warn("transcript cleanup returned nothing, using raw transcript")
		return transcript
	}
	if len(cleaned) > cleanupGrowthLimit*len(transcript)+64 {
		c.log.Warn("transcript cleanup output oversized, using raw transcript",
			"raw_len", len(transcript), "cleaned_len", len(cleaned))
		return transcript
	}

	c.log.Debug("transcript cleaned", "took", time.Since(start))
	return cleaned
}
