package audio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	r := New(Config{})
	if r.cfg.SampleRate != 16000 || r.cfg.Channels != 1 {
		t.Fatalf("defaults not applied: %+v", r.cfg)
	}
	if r.cfg.FramesPerBuffer != 1024 {
		t.Fatalf("FramesPerBuffer = %d, want 1024", r.cfg.FramesPerBuffer)
	}
	if r.cfg.MaxDuration != 60*time.Second {
		t.Fatalf("MaxDuration = %v, want 60s", r.cfg.MaxDuration)
	}
	if r.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", r.State())
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := New(Config{})
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
	if r.State() != StateIdle {
		t.Fatalf("state = %v after failed stop, want idle", r.State())
	}
}

func TestAbortIdleIsSafe(t *testing.T) {
	r := New(Config{})
	r.Abort()
	r.Abort()
	if r.State() != StateIdle {
		t.Fatalf("state = %v, want idle", r.State())
	}
}

func TestRecordCycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping device test in short mode")
	}
	if runtime.GOOS != "darwin" {
		t.Skip("skipping on non-darwin")
	}

	if err := Initialize(); err != nil {
		t.Skipf("audio backend unavailable: %v", err)
	}
	defer Terminate()

	r := New(Config{})
	if err := r.Start(); err != nil {
		t.Skipf("no input device available: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrRunning) {
		t.Fatalf("expected ErrRunning on second start, got %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	buf, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.State() != StateIdle {
		t.Fatalf("state = %v after stop, want idle", r.State())
	}
	if buf.SampleRate != 16000 {
		t.Fatalf("buffer rate = %d", buf.SampleRate)
	}
}

func TestWriteWAV(t *testing.T) {
	b := sineBuffer(0.3, 500*time.Millisecond, 500*time.Millisecond)
	path := filepath.Join(t.TempDir(), "out.wav")

	if err := b.WriteWAV(path); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Fatal("missing RIFF header")
	}
	// 8000 frames of 16-bit mono plus header.
	if len(data) < 16000 {
		t.Fatalf("wav too small: %d bytes", len(data))
	}
}
