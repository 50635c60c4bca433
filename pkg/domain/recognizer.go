package domain

// NoneIntent is reported when nothing was recognized.
const NoneIntent = "None"

// IntentScore is one ranked intent.
type IntentScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// RecognizerResult is the structured view of one utterance.
// Intents are ordered best first.
type RecognizerResult struct {
	Text     string         `json:"text"`
	Intents  []IntentScore  `json:"intents"`
	Entities map[string]any `json:"entities,omitempty"`
}

// TopIntent returns the best ranked intent, or NoneIntent with a zero score.
func (r RecognizerResult) TopIntent() IntentScore {
	if len(r.Intents) == 0 {
		return IntentScore{Name: NoneIntent}
	}
	return r.Intents[0]
}

// AsMap exposes the result to templates and expressions under turn.recognized.
func (r RecognizerResult) AsMap() map[string]any {
	top := r.TopIntent()
	intents := make([]any, 0, len(r.Intents))
	for _, i := range r.Intents {
		intents = append(intents, map[string]any{"name": i.Name, "score": i.Score})
	}
	entities := make(map[string]any, len(r.Entities))
	for k, v := range r.Entities {
		entities[k] = v
	}
	return map[string]any{
		"text":     r.Text,
		"intent":   top.Name,
		"score":    top.Score,
		"intents":  intents,
		"entities": entities,
	}
}
