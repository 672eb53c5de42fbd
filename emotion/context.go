package emotion

import (
	"encoding/json"
	"fmt"

	"go.mgrd.me/perq/internal/types"
)

// ContextPrefix renders emotions as the bracketed context block placed
// in front of the transcript. Returns "" when there is nothing to say.
func ContextPrefix(emotions []types.EmotionScore) string {
	if len(emotions) == 0 {
		return ""
	}

	type entry struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	payload := struct {
		TopEmotions []entry `json:"top_emotions"`
		Source      string  `json:"source"`
	}{
		TopEmotions: make([]entry, 0, len(emotions)),
		Source:      "hume_prosody",
	}
	for _, e := range emotions {
		payload.TopEmotions = append(payload.TopEmotions, entry{
			Name: e.Label,
			// Two decimals keep the prompt short.
			Score: roundScore(e.Score),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("[voice_affect: %s] ", data)
}

func roundScore(s float64) float64 {
	return float64(int(s*100+0.5)) / 100
}
