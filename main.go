package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"go.mgrd.me/perq/audio"
	"go.mgrd.me/perq/config"
	"go.mgrd.me/perq/history"
	"go.mgrd.me/perq/internal/app"
	"go.mgrd.me/perq/overlay"
	"go.mgrd.me/perq/permission"
	"go.mgrd.me/perq/trigger"
	"go.mgrd.me/perq/ui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/perq/config.json)")
		noTray     = flag.Bool("no-tray", false, "run without the menu bar item")
		historyN   = flag.Int("history", 0, "print the latest n session records and exit")
		pickerMode = flag.Bool("overlay", false, "run the region picker (spawned internally)")
		pickerOut  = flag.String("out", "", "picker result file (spawned internally)")
	)
	flag.Parse()

	// The region picker is this same binary re-executed with -overlay.
	// Its webview needs the main thread, so it runs before anything else.
	if *pickerMode {
		if err := overlay.Run(*pickerOut); err != nil {
			fmt.Fprintln(os.Stderr, "overlay:", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "perq:", err)
		os.Exit(1)
	}

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(log)

	log.Info("starting perq", "version", version, "commit", commit, "date", date)

	writeTemplateConfig(*configPath, log)

	if *historyN > 0 {
		if err := printHistory(*historyN, log); err != nil {
			fatal(log, "print history", "error", err)
		}
		return
	}

	if cfg.OpenAIAPIKey == "" {
		path := *configPath
		if path == "" {
			path, _ = config.DefaultPath()
		}
		fatal(log, "OPENAI_API_KEY is not set",
			"hint", "export OPENAI_API_KEY or add it to "+path)
	}

	if missing := permission.Missing(true); len(missing) > 0 {
		log.Warn("missing permissions", "which", strings.Join(missing, ", "))
		permission.RequestMicrophone()
		permission.RequestScreenRecording()
	}
	if !permission.HasAccessibility() {
		log.Warn("key monitoring needs accessibility",
			"hint", "System Settings > Privacy & Security > Accessibility")
	}
	screenOK := permission.HasScreenRecording()
	if !screenOK {
		log.Warn("screenshots disabled until screen recording is granted",
			"hint", "System Settings > Privacy & Security > Screen Recording")
	}

	if err := audio.Initialize(); err != nil {
		fatal(log, "audio backend unavailable", "error", err)
	}
	defer audio.Terminate()

	app.CleanupTempFiles(log)

	var store *history.Store
	if dir, err := historyDir(); err != nil {
		log.Warn("session history disabled", "error", err)
	} else if store, err = history.Open(dir, log); err != nil {
		log.Warn("session history disabled", "error", err)
		store = nil
	} else {
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("close history", "error", err)
			}
		}()
	}

	sink := &statusSink{}
	svc := app.New(cfg, store, screenOK, sink, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Banner(os.Stdout, cfg.TriggerScreenshot, cfg.TriggerAudioOnly)

	if err := runService(ctx, stop, svc, sink, !*noTray, log); err != nil && !errors.Is(err, context.Canceled) {
		var perr *permission.Error
		if errors.As(err, &perr) {
			log.Error("perq stopped", "error", err,
				"hint", "grant "+perr.Capability+" in System Settings > Privacy & Security, then restart")
		} else {
			log.Error("perq stopped", "error", err)
		}
		ui.Notify("perq stopped: " + err.Error())
	}
}

// runService drives the session service until ctx ends. With the tray
// enabled the tray loop owns the calling goroutine (macOS wants UI on
// the main thread) and the service runs beside it.
func runService(ctx context.Context, stop context.CancelFunc, svc *app.Service, sink *statusSink, useTray bool, log *slog.Logger) error {
	if !useTray {
		return svc.Run(ctx)
	}

	errCh := make(chan error, 1)
	ui.RunTray(func(t *ui.Tray) {
		sink.tray = t
		go func() {
			errCh <- svc.Run(ctx)
			ui.Quit()
		}()
		go func() {
			select {
			case <-t.QuitRequested():
				log.Info("quit requested from tray")
				stop()
			case <-ctx.Done():
			}
		}()
	}, func() {})
	return <-errCh
}

// writeTemplateConfig persists the defaults on first run so the user
// has a file to edit. Values picked up from the environment are not
// written back.
func writeTemplateConfig(path string, log *slog.Logger) {
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return
		}
	}
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return
	}
	if err := config.Default().Save(path); err != nil {
		log.Warn("write config template", "error", err)
		return
	}
	log.Info("wrote config template", "path", path)
}

func printHistory(n int, log *slog.Logger) error {
	dir, err := historyDir()
	if err != nil {
		return err
	}
	store, err := history.Open(dir, log)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	recs, err := store.Recent(n)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("no sessions recorded yet")
		return nil
	}
	for _, rec := range recs {
		fmt.Println(ui.SessionLine(rec))
	}
	return nil
}

func historyDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, "perq", "history"), nil
}

func fatal(log *slog.Logger, msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// statusSink fans session events out to the terminal and the tray.
// Level arrives on the audio capture thread, so the meter state is
// guarded.
type statusSink struct {
	tray *ui.Tray // nil when running headless

	mu      sync.Mutex
	meter   *ui.Meter
	started time.Time
}

func (s *statusSink) Started(kind trigger.Kind) {
	s.mu.Lock()
	s.meter = ui.NewMeter(os.Stdout)
	s.started = time.Now()
	s.mu.Unlock()
	if s.tray != nil {
		s.tray.Recording()
	}
}

func (s *statusSink) Level(rms float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meter != nil {
		s.meter.Update(float64(rms), time.Since(s.started))
	}
}

func (s *statusSink) Stopped() {
	s.mu.Lock()
	if s.meter != nil {
		s.meter.Done()
		s.meter = nil
	}
	s.mu.Unlock()
}

func (s *statusSink) Processing() {
	if s.tray != nil {
		s.tray.Processing()
	}
}

func (s *statusSink) Dispatched(transcript string, research bool) {
	ui.Transcript(os.Stdout, transcript)
	if s.tray != nil {
		s.tray.LastTranscript(transcript)
		s.tray.Idle()
	}
}

func (s *statusSink) Skipped(reason string) {
	if s.tray != nil {
		s.tray.Idle()
	}
}

func (s *statusSink) Failed(msg string) {
	ui.Notify("perq: " + msg)
	if s.tray != nil {
		s.tray.Error()
	}
}
