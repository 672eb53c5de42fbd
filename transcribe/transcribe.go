// Package transcribe turns recorded WAV files into text using the
// OpenAI transcription API.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyTranscript reports that the service returned no usable text.
// Sessions skip dispatch instead of sending an empty prompt.
var ErrEmptyTranscript = errors.New("empty transcript")

// NetworkError wraps transport and API failures from the transcription
// service. Status is zero when the request never completed.
type NetworkError struct {
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transcription API error %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transcription request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Auth reports whether the failure was an authentication problem.
func (e *NetworkError) Auth() bool {
	return e.Status == 401 || e.Status == 403
}

// Config holds transcription settings.
type Config struct {
	APIKey   string
	BaseURL  string // optional, for tests and proxies
	Model    string
	Language string // ISO 639-1, always sent with the request
}

// Transcriber submits audio files for transcription.
type Transcriber struct {
	client   openai.Client
	model    string
	language string
	verifier *verifier
	log      *slog.Logger
}

// New creates a Transcriber.
func New(cfg Config, log *slog.Logger) *Transcriber {
	if log == nil {
		log = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(60 * time.Second),
		option.WithMaxRetries(2),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Transcriber{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		language: cfg.Language,
		verifier: newVerifier(cfg.Language),
		log:      log,
	}
}

// Transcribe sends the WAV file at path and returns the transcript text.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	start := time.Now()
	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:        f,
		Model:       openai.AudioModel(t.model),
		Language:    openai.String(t.language),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	t.log.Debug("transcription complete",
		"model", t.model, "chars", len(text), "took", time.Since(start))
	t.verifier.check(text, t.log)
	return text, nil
}

func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &NetworkError{Status: apierr.StatusCode, Err: err}
	}
	return &NetworkError{Err: err}
}
