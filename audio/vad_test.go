package audio

import (
	"math"
	"testing"
	"time"
)

// sineBuffer renders amplitude amp at 440 Hz for the given duration,
// padded with silence to total.
func sineBuffer(amp float64, voiced, total time.Duration) *Buffer {
	const rate = 16000
	n := int(total.Seconds() * rate)
	v := int(voiced.Seconds() * rate)
	samples := make([]float32, n)
	for i := 0; i < v && i < n; i++ {
		samples[i] = float32(amp * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	return &Buffer{Samples: samples, SampleRate: rate, Channels: 1}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		buf        *Buffer
		wantSpeech bool
	}{
		{"nil_buffer", nil, false},
		{"pure_silence", constBuffer(0, 16000), false},
		{"one_second_speech", sineBuffer(0.3, time.Second, 2*time.Second), true},
		{"quiet_speech_counts", sineBuffer(0.05, time.Second, time.Second), true},
		{"below_floor_ignored", sineBuffer(0.005, time.Second, time.Second), false},
		{"blip_too_short", sineBuffer(0.3, 100*time.Millisecond, 2*time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := Analyze(tt.buf)
			if got := act.HasSpeech(); got != tt.wantSpeech {
				t.Fatalf("HasSpeech = %v (voiced %v), want %v", got, act.Voiced, tt.wantSpeech)
			}
		})
	}
}

func TestAnalyzeTotals(t *testing.T) {
	act := Analyze(sineBuffer(0.3, time.Second, 2*time.Second))
	if act.Total != 2*time.Second {
		t.Fatalf("Total = %v, want 2s", act.Total)
	}
	if act.Voiced < 900*time.Millisecond || act.Voiced > 1100*time.Millisecond {
		t.Fatalf("Voiced = %v, want ~1s", act.Voiced)
	}
	if act.PeakRMS <= 0 {
		t.Fatal("PeakRMS not populated")
	}
}
