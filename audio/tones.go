package audio

import (
	"log/slog"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	toneSampleRate = 44100
	toneAmplitude  = 0.25
	toneFade       = 5 * time.Millisecond
	toneGap        = 50 * time.Millisecond
)

// Tones plays short sine-wave feedback beeps on the default output
// device. Playback errors are logged and swallowed: feedback must never
// break a session.
type Tones struct {
	enabled bool
}

// NewTones returns a tone player. When disabled all methods are no-ops.
func NewTones(enabled bool) *Tones {
	return &Tones{enabled: enabled}
}

// Ready plays the startup double beep (800 then 1000 Hz).
func (t *Tones) Ready() {
	t.play(800, 120*time.Millisecond)
	time.Sleep(toneGap)
	t.play(1000, 120*time.Millisecond)
}

// RecordStart marks the beginning of a recording (900 Hz).
func (t *Tones) RecordStart() { t.play(900, 110*time.Millisecond) }

// RecordStop marks the end of a recording (700 Hz).
func (t *Tones) RecordStop() { t.play(700, 110*time.Millisecond) }

// Submitted marks a successful dispatch (1200 Hz).
func (t *Tones) Submitted() { t.play(1200, 140*time.Millisecond) }

func (t *Tones) play(freq float64, dur time.Duration) {
	if t == nil || !t.enabled {
		return
	}
	if err := playTone(freq, dur); err != nil {
		slog.Debug("tone playback failed", "freq", freq, "error", err)
	}
}

// playTone assumes Initialize has been called.
func playTone(freq float64, dur time.Duration) error {
	samples := synthTone(freq, dur)

	const frames = 1024
	out := make([]float32, frames)
	stream, err := portaudio.OpenDefaultStream(0, 1, toneSampleRate, frames, &out)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += frames {
		n := copy(out, samples[off:])
		for i := n; i < frames; i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// synthTone renders a sine burst with a short linear fade at both ends to
// avoid clicks.
func synthTone(freq float64, dur time.Duration) []float32 {
	total := int(dur.Seconds() * toneSampleRate)
	fade := int(toneFade.Seconds() * toneSampleRate)
	if fade*2 > total {
		fade = total / 2
	}

	samples := make([]float32, total)
	for i := range samples {
		v := toneAmplitude * math.Sin(2*math.Pi*freq*float64(i)/toneSampleRate)
		switch {
		case i < fade:
			v *= float64(i) / float64(fade)
		case i >= total-fade:
			v *= float64(total-i) / float64(fade)
		}
		samples[i] = float32(v)
	}
	return samples
}
