package characters

import "strings"

// Emotion labels a portrait variant for a persona.
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionSmile      Emotion = "smile"
	EmotionSurprised  Emotion = "surprised"
	EmotionThoughtful Emotion = "thoughtful"
	EmotionExcited    Emotion = "excited"
)

// Keyword tables checked in priority order, strongest signal first.
var (
	excitedWords    = []string{"excited", "thrilled", "can't wait", "amazing", "awesome", "fantastic", "incredible"}
	surprisedWords  = []string{"wow", "really?", "seriously?", "no way", "oh my", "surprised", "shocking", "unbelievable"}
	thoughtfulWords = []string{"hmm", "let me think", "interesting", "i see", "that's a good", "wondering", "curious", "consider"}
	smileWords      = []string{"happy", "glad", "great", "good", "nice", "wonderful", "pleased", "haha", "lol", "😊"}
)

// ClassifyEmotion derives a portrait emotion from reply text by substring
// keyword match. Falls through to neutral.
func ClassifyEmotion(text string) Emotion {
	lower := strings.ToLower(text)
	if containsAny(lower, excitedWords) {
		return EmotionExcited
	}
	if containsAny(lower, surprisedWords) {
		return EmotionSurprised
	}
	if containsAny(lower, thoughtfulWords) {
		return EmotionThoughtful
	}
	if containsAny(lower, smileWords) {
		return EmotionSmile
	}
	return EmotionNeutral
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
