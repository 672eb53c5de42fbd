package audio

import (
	"math"
	"time"
)

const (
	// normalizeTarget is the peak the buffer is scaled towards.
	normalizeTarget = 0.9
	// normalizeMaxGain caps amplification of quiet recordings.
	normalizeMaxGain = 10.0
	// normalizeQuietPeak is the peak below which normalization is skipped.
	normalizeQuietPeak = 0.05
)

// Buffer is a sealed recording: float32 PCM in [-1, 1] at a fixed rate.
// It is read-only after Stop except through Normalize.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Truncated  bool
}

// Duration returns the buffered audio length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 || b.Channels == 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Peak returns the maximum absolute sample value.
func (b *Buffer) Peak() float32 {
	var peak float32
	for _, s := range b.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Normalize scales the buffer so its peak reaches 90% of full scale.
// Gain is capped at 10x, and buffers whose peak is below 5% are left
// untouched. Returns the gain applied and whether scaling happened.
func (b *Buffer) Normalize() (gain float32, applied bool) {
	peak := b.Peak()
	if peak < normalizeQuietPeak {
		return 1, false
	}

	gain = float32(math.Min(normalizeTarget/float64(peak), normalizeMaxGain))
	if gain == 1 {
		return 1, false
	}

	for i, s := range b.Samples {
		v := s * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		b.Samples[i] = v
	}
	return gain, true
}

// blockRMS returns the root mean square of one capture block.
func blockRMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
