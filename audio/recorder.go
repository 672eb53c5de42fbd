// Package audio provides microphone recording for push-to-talk capture.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrRunning is returned when trying to start a recorder that is already recording.
var ErrRunning = errors.New("recorder already running")

// ErrNotRecording is returned when stopping a recorder that never started.
var ErrNotRecording = errors.New("recorder not recording")

// State describes the recorder lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Initialize readies the audio backend. Call once at startup and pair
// with Terminate at shutdown; streams opened in between share the one
// initialization.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Op: "initialize", Err: err}
	}
	return nil
}

// Terminate releases the audio backend.
func Terminate() {
	_ = portaudio.Terminate()
}

// Config holds configuration for the recorder.
type Config struct {
	SampleRate      int           // default 16000 Hz
	Channels        int           // default 1
	FramesPerBuffer int           // default 1024
	MaxDuration     time.Duration // auto-stop bound, default 60s
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		Channels:        1,
		FramesPerBuffer: 1024,
		MaxDuration:     60 * time.Second,
	}
}

// Recorder captures microphone audio into an in-memory buffer between
// Start and Stop. Stream callbacks run on the PortAudio thread and only
// append to the buffer; the buffer is handed out once, sealed, on Stop.
//
// A recording that reaches MaxDuration releases the device early, but the
// state machine still performs a single Idle → Recording → Finalizing →
// Idle cycle ending at Stop.
type Recorder struct {
	cfg Config

	mu        sync.Mutex
	state     State
	stream    *portaudio.Stream
	started   time.Time
	truncated bool

	bufMu    sync.Mutex
	samples  []float32
	capFired bool

	onLevel func(rms float32)
}

// New creates a recorder with the given configuration. Zero fields take
// defaults.
func New(cfg Config) *Recorder {
	def := DefaultConfig()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = def.Channels
	}
	if cfg.FramesPerBuffer == 0 {
		cfg.FramesPerBuffer = def.FramesPerBuffer
	}
	if cfg.MaxDuration == 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	return &Recorder{cfg: cfg}
}

// OnLevel registers a callback receiving the RMS level of each captured
// block. The callback runs on the capture thread and must not block.
func (r *Recorder) OnLevel(fn func(rms float32)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLevel = fn
}

// State returns the current recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start opens the default input device and begins appending samples.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return ErrRunning
	}

	r.bufMu.Lock()
	r.samples = r.samples[:0]
	r.capFired = false
	r.bufMu.Unlock()
	r.truncated = false

	stream, err := portaudio.OpenDefaultStream(
		r.cfg.Channels, 0,
		float64(r.cfg.SampleRate), r.cfg.FramesPerBuffer,
		r.handleBlock,
	)
	if err != nil {
		return &DeviceError{Op: "open stream", Err: err}
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return &DeviceError{Op: "start stream", Err: err}
	}

	r.stream = stream
	r.started = time.Now()
	r.state = StateRecording
	slog.Debug("recorder started", "rate", r.cfg.SampleRate, "channels", r.cfg.Channels)
	return nil
}

// handleBlock runs on the PortAudio capture thread.
func (r *Recorder) handleBlock(in []float32) {
	var hitCap bool
	r.bufMu.Lock()
	if len(r.samples) < r.maxSamples() {
		r.samples = append(r.samples, in...)
	} else if !r.capFired {
		r.capFired = true
		hitCap = true
	}
	r.bufMu.Unlock()

	if hitCap {
		// Cannot stop the stream from its own callback.
		go r.autoStop()
	}

	if fn := r.onLevel; fn != nil {
		fn(blockRMS(in))
	}
}

func (r *Recorder) maxSamples() int {
	return int(r.cfg.MaxDuration.Seconds()) * r.cfg.SampleRate * r.cfg.Channels
}

// autoStop releases the device when the duration cap is hit. The state
// stays Recording so the session still ends with a normal Stop.
func (r *Recorder) autoStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording || r.stream == nil {
		return
	}
	slog.Warn("max recording duration reached, releasing device", "max", r.cfg.MaxDuration)
	r.closeStreamLocked()
	r.truncated = true
}

func (r *Recorder) closeStreamLocked() {
	_ = r.stream.Stop()
	_ = r.stream.Close()
	r.stream = nil
}

// Stop ends the recording and returns the sealed buffer. The stream and
// the PortAudio handle are released on every path.
func (r *Recorder) Stop() (*Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return nil, ErrNotRecording
	}
	r.state = StateFinalizing

	if r.stream != nil {
		r.closeStreamLocked()
	}

	r.bufMu.Lock()
	samples := make([]float32, len(r.samples))
	copy(samples, r.samples)
	r.samples = r.samples[:0]
	r.bufMu.Unlock()

	elapsed := time.Since(r.started)
	truncated := r.truncated
	r.state = StateIdle

	slog.Debug("recorder stopped",
		"duration", elapsed.Round(time.Millisecond),
		"samples", len(samples),
		"truncated", truncated)

	return &Buffer{
		Samples:    samples,
		SampleRate: r.cfg.SampleRate,
		Channels:   r.cfg.Channels,
		Truncated:  truncated,
	}, nil
}

// Abort tears down an active recording and discards the buffer. Safe to
// call in any state.
func (r *Recorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		r.closeStreamLocked()
	}
	r.bufMu.Lock()
	r.samples = r.samples[:0]
	r.bufMu.Unlock()
	r.state = StateIdle
}

// DeviceError reports an audio device failure.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
