// Package emotion analyzes vocal tone with the Hume batch prosody API.
//
// Analysis runs next to transcription and is strictly additive. When it
// fails or takes too long the session dispatches without emotion
// context rather than waiting.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/net/http2"

	"go.mgrd.me/perq/internal/types"
)

const (
	defaultBaseURL = "https://api.hume.ai"

	pollInterval = 500 * time.Millisecond
	maxPolls     = 10
)

// ErrJobTimeout reports that the prosody job did not finish within the
// polling window.
var ErrJobTimeout = errors.New("emotion job still running after poll limit")

// ErrJobFailed reports that the service rejected or failed the job.
var ErrJobFailed = errors.New("emotion job failed")

// Config holds the analyzer settings.
type Config struct {
	APIKey   string
	BaseURL  string // optional, for tests
	TopN     int
	MinScore float64
}

// Analyzer submits recordings for prosody analysis.
type Analyzer struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// New creates an Analyzer.
func New(cfg Config, log *slog.Logger) (*Analyzer, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	transport := &http.Transport{
		MaxIdleConns:    4,
		IdleConnTimeout: 60 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}

	return &Analyzer{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		log: log,
	}, nil
}

// Analyze runs the full job cycle for the WAV file at path and returns
// the strongest emotions, best first, filtered by the configured
// threshold.
func (a *Analyzer) Analyze(ctx context.Context, path string) ([]types.EmotionScore, error) {
	start := time.Now()

	jobID, err := a.submit(ctx, path)
	if err != nil {
		return nil, err
	}
	a.log.Debug("emotion job submitted", "job_id", jobID)

	if err := a.await(ctx, jobID); err != nil {
		return nil, err
	}

	emotions, err := a.fetchEmotions(ctx, jobID)
	if err != nil {
		return nil, err
	}

	top := selectTop(emotions, a.cfg.TopN, a.cfg.MinScore)
	a.log.Debug("emotion analysis complete",
		"job_id", jobID, "kept", len(top), "took", time.Since(start))
	return top, nil
}

// submit starts a batch job and returns its id.
func (a *Analyzer) submit(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("json", `{"models": {"prosody": {}}}`); err != nil {
		return "", fmt.Errorf("write models field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.cfg.BaseURL+"/v0/batch/jobs", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Hume-Api-Key", a.cfg.APIKey)

	var ref struct {
		JobID string `json:"job_id"`
	}
	if err := a.doJSON(req, &ref); err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	if ref.JobID == "" {
		return "", fmt.Errorf("submit job: response missing job_id")
	}
	return ref.JobID, nil
}

// await polls the job until it completes or the poll limit runs out.
func (a *Analyzer) await(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for i := 0; i < maxPolls; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, "GET", a.cfg.BaseURL+"/v0/batch/jobs/"+jobID, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Hume-Api-Key", a.cfg.APIKey)

		var status struct {
			State struct {
				Status string `json:"status"`
			} `json:"state"`
		}
		if err := a.doJSON(req, &status); err != nil {
			return fmt.Errorf("poll job: %w", err)
		}

		switch status.State.Status {
		case "COMPLETED":
			return nil
		case "FAILED":
			return fmt.Errorf("%w: job %s", ErrJobFailed, jobID)
		}
	}
	return ErrJobTimeout
}

// fetchEmotions downloads the predictions and extracts the emotion
// scores of the first prosody prediction.
func (a *Analyzer) fetchEmotions(ctx context.Context, jobID string) ([]types.EmotionScore, error) {
	req, err := http.NewRequestWithContext(ctx, "GET",
		a.cfg.BaseURL+"/v0/batch/jobs/"+jobID+"/predictions", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Hume-Api-Key", a.cfg.APIKey)

	var preds []struct {
		Results struct {
			Predictions []struct {
				Models struct {
					Prosody struct {
						GroupedPredictions []struct {
							Predictions []struct {
								Emotions []struct {
									Name  string  `json:"name"`
									Score float64 `json:"score"`
								} `json:"emotions"`
							} `json:"predictions"`
						} `json:"grouped_predictions"`
					} `json:"prosody"`
				} `json:"models"`
			} `json:"predictions"`
		} `json:"results"`
	}
	if err := a.doJSON(req, &preds); err != nil {
		return nil, fmt.Errorf("fetch predictions: %w", err)
	}

	if len(preds) == 0 || len(preds[0].Results.Predictions) == 0 {
		return nil, nil
	}
	grouped := preds[0].Results.Predictions[0].Models.Prosody.GroupedPredictions
	if len(grouped) == 0 || len(grouped[0].Predictions) == 0 {
		return nil, nil
	}

	raw := grouped[0].Predictions[0].Emotions
	emotions := make([]types.EmotionScore, 0, len(raw))
	for _, e := range raw {
		emotions = append(emotions, types.EmotionScore{Label: e.Name, Score: e.Score})
	}
	return emotions, nil
}

func (a *Analyzer) doJSON(req *http.Request, out any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, truncateBody(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func truncateBody(b []byte) string {
	const n = 200
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// selectTop sorts by score and keeps the n strongest at or above min.
func selectTop(emotions []types.EmotionScore, n int, min float64) []types.EmotionScore {
	sorted := make([]types.EmotionScore, len(emotions))
	copy(sorted, emotions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	top := make([]types.EmotionScore, 0, n)
	for _, e := range sorted {
		if len(top) == n {
			break
		}
		if e.Score < min {
			break
		}
		top = append(top, e)
	}
	return top
}
