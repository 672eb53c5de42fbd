package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.mgrd.me/perq/audio"
	"go.mgrd.me/perq/capture"
	"go.mgrd.me/perq/dispatch"
	"go.mgrd.me/perq/emotion"
	"go.mgrd.me/perq/internal/types"
	"go.mgrd.me/perq/transcribe"
	"go.mgrd.me/perq/trigger"
)

// defaultFormatHint is appended to the prompt when the response format
// hint is enabled and no custom text is configured. The markers match
// the ones the response watcher looks for.
const defaultFormatHint = "Respond in EXACTLY this format: <<<TLDR>>> <TL;DR in 2 sentence(s)> " +
	"<<<FULL>>> <full answer> <<<END>>> (include the markers verbatim)."

// session is one push-to-talk interaction from key down to journal
// write.
type session struct {
	kind      trigger.Kind
	startedAt time.Time
	recording bool

	overlayCancel context.CancelFunc
	regionCh      chan regionResult
}

type regionResult struct {
	region types.Region
	err    error
}

// resolveRegion ends the overlay with the hold and returns whatever the
// user selected. Blocks only for the subprocess teardown.
func (sess *session) resolveRegion() regionResult {
	sess.overlayCancel()
	return <-sess.regionCh
}

// resolvedSelector replays a selection that finished with the hold.
type resolvedSelector struct{ res regionResult }

func (r resolvedSelector) Select(context.Context) (types.Region, error) {
	return r.res.region, r.res.err
}

// beginSession starts recording on a trigger activation. Runs on the
// event loop; everything slow is pushed to goroutines.
func (s *Service) beginSession(ctx context.Context, kind trigger.Kind) {
	s.mu.Lock()
	if s.sess != nil {
		s.mu.Unlock()
		s.log.Debug("trigger ignored, session active", "kind", kind.String())
		return
	}
	sess := &session{kind: kind, startedAt: time.Now(), recording: true}
	s.sess = sess
	s.mu.Unlock()

	go s.tones.RecordStart()

	if err := s.recorder.Start(); err != nil {
		s.log.Error("start recorder", "error", err)
		s.notify.Failed("microphone unavailable")
		s.clearSession()
		return
	}
	s.notify.Started(kind)
	s.log.Info("recording started", "mode", kind.String())

	if kind == trigger.KindScreenshot && s.overlay != nil {
		octx, cancel := context.WithCancel(ctx)
		sess.overlayCancel = cancel
		sess.regionCh = make(chan regionResult, 1)
		go func() {
			r, err := s.overlay.Select(octx)
			sess.regionCh <- regionResult{region: r, err: err}
		}()
	}
}

// endRecording stops the recorder on the trigger release and hands the
// buffer to the processing pipeline. The session slot stays occupied
// until processing finishes, so new activations are dropped meanwhile.
func (s *Service) endRecording(ctx context.Context, kind trigger.Kind) {
	s.mu.Lock()
	sess := s.sess
	if sess == nil || sess.kind != kind || !sess.recording {
		s.mu.Unlock()
		return
	}
	sess.recording = false
	s.mu.Unlock()

	go s.tones.RecordStop()
	s.notify.Stopped()

	buf, err := s.recorder.Stop()
	if err != nil {
		s.log.Error("stop recorder", "error", err)
		s.notify.Failed("recording failed")
		if sess.overlayCancel != nil {
			sess.resolveRegion()
		}
		s.record(&types.SessionRecord{
			ID:         uuid.NewString(),
			Mode:       kind.String(),
			StartedAt:  sess.startedAt,
			FinishedAt: time.Now(),
			Status:     types.SessionFailed,
			Error:      err.Error(),
		})
		s.clearSession()
		return
	}

	go func() {
		defer s.clearSession()
		s.process(ctx, sess, buf)
	}()
}

// process runs the pipeline on a finished recording: silence check,
// normalization, capture, transcription plus emotion in parallel,
// cleanup, dispatch, journal. Temp files are removed on every path.
func (s *Service) process(ctx context.Context, sess *session, buf *audio.Buffer) {
	rec := &types.SessionRecord{
		ID:        uuid.NewString(),
		Mode:      sess.kind.String(),
		StartedAt: sess.startedAt,
	}
	defer func() {
		rec.FinishedAt = time.Now()
		s.record(rec)
	}()

	// The overlay dies with the hold, selection or not.
	var sel capture.Selector
	if sess.regionCh != nil {
		res := sess.resolveRegion()
		if res.err == nil && res.region.Valid() {
			rec.Region = &res.region
		}
		sel = resolvedSelector{res: res}
	}

	act := audio.Analyze(buf)
	if !act.HasSpeech() {
		s.log.Info("no speech detected, skipping",
			"voiced", act.Voiced, "duration", buf.Duration().Round(time.Millisecond))
		s.notify.Skipped("no speech detected")
		rec.Status = types.SessionSkipped
		return
	}

	if gain, applied := buf.Normalize(); applied {
		s.log.Debug("normalized recording", "gain", fmt.Sprintf("%.2f", gain))
	}

	wavPath := tempAudioPath()
	if err := buf.WriteWAV(wavPath); err != nil {
		s.fail(rec, fmt.Errorf("write recording: %w", err))
		return
	}
	defer removeTemp(wavPath, s.log)

	var shotPath string
	if sess.kind == trigger.KindScreenshot && s.screenOK {
		var err error
		shotPath, err = s.grab(ctx, sel)
		if err != nil {
			s.log.Warn("screenshot failed, dispatching audio only", "error", err)
		} else {
			defer removeTemp(shotPath, s.log)
		}
	}

	s.notify.Processing()

	transcript, emotions, err := s.analyze(ctx, wavPath)
	switch {
	case errors.Is(err, transcribe.ErrEmptyTranscript):
		s.log.Info("empty transcript, skipping dispatch")
		s.notify.Skipped("nothing transcribed")
		rec.Status = types.SessionSkipped
		return
	case err != nil:
		s.fail(rec, fmt.Errorf("transcribe: %w", err))
		return
	}

	text := transcript
	if s.cleaner != nil {
		text = s.cleaner.Clean(ctx, transcript)
	}
	rec.Transcript = text
	rec.Emotions = emotions

	prompt := text
	if prefix := emotion.ContextPrefix(emotions); prefix != "" {
		prompt = prefix + prompt
	}
	if s.cfg.EnableFormatHint {
		hint := s.cfg.FormatHint
		if hint == "" {
			hint = defaultFormatHint
		}
		prompt += " " + hint
	}
	prompt = singleLine(prompt)

	var onSummary func(string)
	if s.cfg.EnableTTS && s.speaker != nil {
		onSummary = func(tldr string) {
			if err := s.speaker.Speak(tldr); err != nil {
				s.log.Warn("speak summary failed", "error", err)
			}
		}
	}

	res, err := s.deliver.Deliver(ctx, dispatch.Request{
		Text:           prompt,
		RawTranscript:  transcript,
		ScreenshotPath: shotPath,
	}, onSummary)
	if err != nil {
		s.fail(rec, fmt.Errorf("dispatch: %w", err))
		return
	}

	rec.Research = res.Research
	rec.Status = types.SessionDispatched
	go s.tones.Submitted()
	s.notify.Dispatched(text, res.Research)
	s.log.Info("prompt dispatched",
		"research", res.Research, "uploaded", res.Uploaded, "chars", len(prompt))
}

// analyze runs transcription and the optional emotion analysis on the
// same file concurrently. Emotion failure degrades to an empty result;
// only transcription errors surface.
func (s *Service) analyze(ctx context.Context, wavPath string) (string, []types.EmotionScore, error) {
	var (
		wg         sync.WaitGroup
		transcript string
		terr       error
		emotions   []types.EmotionScore
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		transcript, terr = s.transcriber.Transcribe(ctx, wavPath)
	}()

	if s.analyzer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			emotions, err = s.analyzer.Analyze(ctx, wavPath)
			if err != nil {
				s.log.Warn("emotion analysis failed", "error", err)
			}
		}()
	}

	wg.Wait()
	return transcript, emotions, terr
}

func (s *Service) fail(rec *types.SessionRecord, err error) {
	s.log.Error("session failed", "id", rec.ID, "error", err)
	rec.Status = types.SessionFailed
	rec.Error = err.Error()
	s.notify.Failed(err.Error())
}

func (s *Service) record(rec *types.SessionRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(rec); err != nil {
		s.log.Warn("journal append failed", "error", err)
	}
}

// singleLine collapses all whitespace runs. The prompt goes into a box
// where a literal newline submits early.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func tempAudioPath() string {
	return filepath.Join(os.TempDir(), "perplexity_audio_"+uuid.NewString()+".wav")
}

func removeTemp(path string, log *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("remove temp file", "path", path, "error", err)
	}
}
