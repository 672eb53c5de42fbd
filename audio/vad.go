package audio

import "time"

const (
	// vadWindow is the analysis window for voice activity.
	vadWindow = 50 * time.Millisecond
	// vadThreshold is the per-window RMS above which a window counts as voiced.
	vadThreshold = 0.01
	// vadMinVoiced is the minimum voiced total for a buffer to count as speech.
	vadMinVoiced = 200 * time.Millisecond
)

// Activity summarizes voice activity in a captured buffer.
type Activity struct {
	Voiced  time.Duration
	Total   time.Duration
	PeakRMS float32
}

// HasSpeech reports whether enough voiced audio is present to be worth
// transcribing. The threshold is deliberately low: quiet speech must pass,
// only dead air should fail.
func (a Activity) HasSpeech() bool {
	return a.Voiced >= vadMinVoiced
}

// Analyze walks the buffer in fixed windows and measures voiced time.
func Analyze(b *Buffer) Activity {
	if b == nil || b.SampleRate == 0 || len(b.Samples) == 0 {
		return Activity{}
	}

	windowSamples := int(vadWindow.Seconds() * float64(b.SampleRate) * float64(b.Channels))
	if windowSamples == 0 {
		windowSamples = len(b.Samples)
	}

	act := Activity{Total: b.Duration()}
	for off := 0; off < len(b.Samples); off += windowSamples {
		end := off + windowSamples
		if end > len(b.Samples) {
			end = len(b.Samples)
		}
		rms := blockRMS(b.Samples[off:end])
		if rms > act.PeakRMS {
			act.PeakRMS = rms
		}
		if rms > vadThreshold {
			act.Voiced += vadWindow
		}
	}
	return act
}
