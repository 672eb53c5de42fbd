package transcribe

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Transcripts shorter than this carry too little signal to classify.
const verifyMinRunes = 20

// verifier spot-checks that transcripts come back in the configured
// language. The model occasionally ignores the language parameter on
// noisy audio, which poisons the downstream prompt. Detection is
// advisory: a mismatch is logged, never rejected.
type verifier struct {
	want string // ISO 639-1

	once     sync.Once
	detector lingua.LanguageDetector
}

func newVerifier(language string) *verifier {
	return &verifier{want: strings.ToLower(language)}
}

func (v *verifier) check(text string, log *slog.Logger) {
	if v.want == "" || len([]rune(text)) < verifyMinRunes {
		return
	}

	// Model load is slow, defer it until the first real transcript.
	v.once.Do(func() {
		v.detector = lingua.NewLanguageDetectorBuilder().
			FromAllSpokenLanguages().
			WithLowAccuracyMode().
			Build()
	})

	detected, ok := v.detector.DetectLanguageOf(text)
	if !ok {
		return
	}

	got := strings.ToLower(detected.IsoCode639_1().String())
	if got != v.want {
		log.Warn("transcript language differs from configured language",
			"configured", v.want, "detected", got)
	}
}
