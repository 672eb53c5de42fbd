package emotion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.mgrd.me/perq/internal/types"
)

const predictionsBody = `[{
	"results": {
		"predictions": [{
			"models": {
				"prosody": {
					"grouped_predictions": [{
						"predictions": [{
							"emotions": [
								{"name": "Calmness", "score": 0.61},
								{"name": "Interest", "score": 0.44},
								{"name": "Boredom", "score": 0.12},
								{"name": "Excitement", "score": 0.31}
							]
						}]
					}]
				}
			}
		}]
	}
}]`

func fakeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestAnalyzer(t *testing.T, handler http.Handler) *Analyzer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := New(Config{
		APIKey:   "hume-key",
		BaseURL:  srv.URL,
		TopN:     3,
		MinScore: 0.2,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestAnalyzeFullFlow(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/batch/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Hume-Api-Key") != "hume-key" {
			t.Error("missing api key header")
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if !strings.Contains(r.FormValue("json"), "prosody") {
			t.Errorf("json field = %q, want prosody model", r.FormValue("json"))
		}
		w.Write([]byte(`{"job_id": "job-1"}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			w.Write([]byte(`{"state": {"status": "IN_PROGRESS"}}`))
			return
		}
		w.Write([]byte(`{"state": {"status": "COMPLETED"}}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/job-1/predictions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(predictionsBody))
	})

	a := newTestAnalyzer(t, mux)
	got, err := a.Analyze(context.Background(), fakeAudio(t))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := []types.EmotionScore{
		{Label: "Calmness", Score: 0.61},
		{Label: "Interest", Score: 0.44},
		{Label: "Excitement", Score: 0.31},
	}
	if len(got) != len(want) {
		t.Fatalf("Analyze() returned %d emotions, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("emotion[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAnalyzeJobFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/batch/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id": "job-2"}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/job-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state": {"status": "FAILED"}}`))
	})

	a := newTestAnalyzer(t, mux)
	if _, err := a.Analyze(context.Background(), fakeAudio(t)); !errors.Is(err, ErrJobFailed) {
		t.Fatalf("Analyze() error = %v, want ErrJobFailed", err)
	}
}

func TestAnalyzePollTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow poll test in short mode")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/batch/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id": "job-3"}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/job-3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state": {"status": "IN_PROGRESS"}}`))
	})

	a := newTestAnalyzer(t, mux)
	if _, err := a.Analyze(context.Background(), fakeAudio(t)); !errors.Is(err, ErrJobTimeout) {
		t.Fatalf("Analyze() error = %v, want ErrJobTimeout", err)
	}
}

func TestAnalyzeSubmitRejected(t *testing.T) {
	a := newTestAnalyzer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "invalid api key"}`, http.StatusUnauthorized)
	}))

	if _, err := a.Analyze(context.Background(), fakeAudio(t)); err == nil {
		t.Fatal("Analyze() expected error for rejected submit")
	}
}

func TestSelectTop(t *testing.T) {
	emotions := []types.EmotionScore{
		{Label: "Boredom", Score: 0.10},
		{Label: "Calmness", Score: 0.80},
		{Label: "Interest", Score: 0.30},
		{Label: "Joy", Score: 0.50},
	}

	tests := []struct {
		name string
		n    int
		min  float64
		want []string
	}{
		{"top three above threshold", 3, 0.2, []string{"Calmness", "Joy", "Interest"}},
		{"threshold cuts early", 3, 0.6, []string{"Calmness"}},
		{"n cuts first", 1, 0.0, []string{"Calmness"}},
		{"all filtered", 3, 0.9, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectTop(emotions, tt.n, tt.min)
			if len(got) != len(tt.want) {
				t.Fatalf("selectTop() = %+v, want labels %v", got, tt.want)
			}
			for i, label := range tt.want {
				if got[i].Label != label {
					t.Errorf("selectTop()[%d] = %q, want %q", i, got[i].Label, label)
				}
			}
		})
	}
}

func TestContextPrefix(t *testing.T) {
	got := ContextPrefix([]types.EmotionScore{
		{Label: "Calmness", Score: 0.614},
		{Label: "Interest", Score: 0.4},
	})

	if !strings.HasPrefix(got, "[voice_affect: ") || !strings.HasSuffix(got, "] ") {
		t.Errorf("ContextPrefix() = %q, want bracketed block with trailing space", got)
	}
	if !strings.Contains(got, `"Calmness"`) || !strings.Contains(got, `0.61`) {
		t.Errorf("ContextPrefix() = %q, want rounded Calmness entry", got)
	}
	if !strings.Contains(got, `"hume_prosody"`) {
		t.Errorf("ContextPrefix() = %q, want source marker", got)
	}
}

func TestContextPrefixEmpty(t *testing.T) {
	if got := ContextPrefix(nil); got != "" {
		t.Errorf("ContextPrefix(nil) = %q, want empty", got)
	}
}
