// Package app wires the capture, transcription and dispatch components
// into the push-to-talk session flow.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.mgrd.me/perq/audio"
	"go.mgrd.me/perq/capture"
	"go.mgrd.me/perq/config"
	"go.mgrd.me/perq/dispatch"
	"go.mgrd.me/perq/emotion"
	"go.mgrd.me/perq/history"
	"go.mgrd.me/perq/internal/types"
	"go.mgrd.me/perq/llm"
	"go.mgrd.me/perq/overlay"
	"go.mgrd.me/perq/speech"
	"go.mgrd.me/perq/transcribe"
	"go.mgrd.me/perq/trigger"
)

// Component seams. Production wiring happens in New; tests substitute
// fakes behind these.
type (
	recorder interface {
		Start() error
		Stop() (*audio.Buffer, error)
		Abort()
		OnLevel(func(rms float32))
	}

	transcriber interface {
		Transcribe(ctx context.Context, path string) (string, error)
	}

	analyzer interface {
		Analyze(ctx context.Context, path string) ([]types.EmotionScore, error)
	}

	cleaner interface {
		Clean(ctx context.Context, transcript string) string
	}

	speaker interface {
		Speak(text string) error
	}

	journal interface {
		Append(rec *types.SessionRecord) error
	}

	regionSelector interface {
		Select(ctx context.Context) (types.Region, error)
	}

	deliverer interface {
		Deliver(ctx context.Context, req dispatch.Request, onSummary func(string)) (dispatch.Result, error)
	}
)

// Service owns the trigger loop and runs one session at a time. A
// trigger pressed while a session is recording or processing is
// dropped, never queued.
type Service struct {
	cfg *config.Config
	log *slog.Logger

	monitor  trigger.Monitor
	recorder recorder
	tones    *audio.Tones
	overlay  regionSelector
	grab     func(ctx context.Context, sel capture.Selector) (string, error)

	transcriber transcriber
	analyzer    analyzer
	cleaner     cleaner
	deliver     deliverer
	speaker     speaker
	journal     journal
	notify      Notifier

	screenOK bool

	mu   sync.Mutex
	sess *session
}

// New wires the production components for the given configuration.
// store may be nil when the journal failed to open; screenOK reports
// the screen-recording grant and gates screenshot capture.
func New(cfg *config.Config, store *history.Store, screenOK bool, notify Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if notify == nil {
		notify = NopNotifier{}
	}

	skey, akey := cfg.TriggerKeys()

	s := &Service{
		cfg:     cfg,
		log:     log,
		monitor: trigger.NewHookMonitor(skey, akey),
		recorder: audio.New(audio.Config{
			SampleRate:  cfg.SampleRate,
			Channels:    cfg.Channels,
			MaxDuration: cfg.MaxRecording(),
		}),
		tones: audio.NewTones(cfg.EnableTones),
		grab: func(ctx context.Context, sel capture.Selector) (string, error) {
			return capture.New(sel, log).Capture(ctx)
		},
		transcriber: transcribe.New(transcribe.Config{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.STTModel,
			Language: cfg.Language,
		}, log),
		notify:   notify,
		screenOK: screenOK,
	}

	s.recorder.OnLevel(func(rms float32) { s.notify.Level(rms) })

	if screenOK && cfg.EnableOverlay {
		s.overlay = overlay.NewSession(log)
	}

	if cfg.EnableEmotion {
		an, err := emotion.New(emotion.Config{
			APIKey:   cfg.HumeAPIKey,
			TopN:     cfg.EmotionTopN,
			MinScore: cfg.EmotionMinScore,
		}, log)
		if err != nil {
			log.Warn("emotion analyzer unavailable", "error", err)
		} else {
			s.analyzer = an
		}
	}

	if cfg.EnablePromptCleanup {
		completer := llm.NewCompleter(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, llm.Options{
			Temperature: 0.0,
			TopP:        1.0,
			MaxTokens:   512,
			Timeout:     cfg.GroqTimeout(),
		})
		s.cleaner = llm.NewCleaner(completer, cfg.GroqTimeout(), log)
	}

	if cfg.EnableTTS {
		s.speaker = speech.New(speech.Config{}, log)
	}

	var cache dispatch.TabCache
	if store != nil {
		s.journal = store
		cache = store
	}
	s.deliver = &cdpDeliverer{debugURL: cfg.ChromeDebug, cache: cache, log: log}

	return s
}

// Run starts the trigger monitor and processes sessions until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	events, err := s.monitor.Start()
	if err != nil {
		return fmt.Errorf("start trigger monitor: %w", err)
	}
	defer s.monitor.Stop()

	go s.tones.Ready()

	for {
		select {
		case <-ctx.Done():
			s.abortActive()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEdge(ctx, ev)
		}
	}
}

func (s *Service) handleEdge(ctx context.Context, ev trigger.Event) {
	if ev.Activated {
		s.beginSession(ctx, ev.Kind)
	} else {
		s.endRecording(ctx, ev.Kind)
	}
}

// abortActive tears down a session interrupted by shutdown.
func (s *Service) abortActive() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		return
	}
	if sess.overlayCancel != nil {
		sess.overlayCancel()
	}
	if sess.recording {
		s.recorder.Abort()
	}
}

func (s *Service) clearSession() {
	s.mu.Lock()
	s.sess = nil
	s.mu.Unlock()
}
