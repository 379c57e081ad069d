// Package lesson holds the learner-facing tuning knobs for a conversation:
// difficulty levels, the vocabulary instructions folded into persona prompts,
// and the canned suggestions used before any model output exists.
package lesson

import "strings"

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// DefaultDifficulty applies until the client picks one during setup.
const DefaultDifficulty = DifficultyIntermediate

func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case DifficultyBeginner:
		return DifficultyBeginner, true
	case DifficultyIntermediate:
		return DifficultyIntermediate, true
	case DifficultyAdvanced:
		return DifficultyAdvanced, true
	default:
		return "", false
	}
}

const beginnerInstruction = `VOCABULARY LEVEL - BEGINNER:
- Use ONLY very basic, everyday words that 10-year-old children understand
- Examples: happy, sad, eat, play, friend, house, school
- NEVER use idioms, metaphors, or figurative language
- NEVER use phrasal verbs (like "hang out", "come up with")
- Keep sentences very short and simple
- Avoid any complex expressions`

const intermediateInstruction = `VOCABULARY LEVEL - INTERMEDIATE:
- Use high school level vocabulary only
- Common words used in everyday conversation
- AVOID idioms and figurative expressions
- AVOID uncommon metaphors
- Use clear, literal language
- Keep expressions straightforward`

const advancedInstruction = `VOCABULARY LEVEL - ADVANCED:
- Use natural, fluent English
- College-level vocabulary is acceptable
- You may use common idioms sparingly
- Express ideas naturally as a native speaker would`

// Instruction returns the vocabulary constraint block for a difficulty.
// Unknown values fall back to intermediate.
func (d Difficulty) Instruction() string {
	switch d {
	case DifficultyBeginner:
		return beginnerInstruction
	case DifficultyAdvanced:
		return advancedInstruction
	default:
		return intermediateInstruction
	}
}

// VocabHint is the one-line form of the constraint used inside other prompts
// (e.g. suggestion generation).
func (d Difficulty) VocabHint() string {
	switch d {
	case DifficultyBeginner:
		return "Use VERY simple words that 10-year-old children understand. NO idioms, NO phrasal verbs."
	case DifficultyAdvanced:
		return "Use natural, fluent English with college-level vocabulary."
	default:
		return "Use high school level vocabulary. Clear and straightforward language."
	}
}

// ApplyToPrompt appends the difficulty's vocabulary instruction to a persona
// system prompt.
func ApplyToPrompt(basePrompt string, d Difficulty) string {
	return basePrompt + "\n\n" + d.Instruction()
}

// ClosingInstruction is appended to the system prompt on the final turn to
// steer the model toward an encouraging sign-off.
const ClosingInstruction = "\n\nIMPORTANT: This is the end of our conversation (10 turns completed). Please provide a warm closing message in 2-3 sentences, thanking the user for the practice and encouraging them to keep learning English."

// InitialSuggestions are the canned starter replies pushed right after
// difficulty selection, before any model round trip.
func InitialSuggestions(d Difficulty) []string {
	switch d {
	case DifficultyBeginner:
		return []string{
			"I'm good, thanks!",
			"Pretty good.",
			"Not bad, how about you?",
		}
	case DifficultyAdvanced:
		return []string{
			"I'm doing great, thanks! How about you?",
			"Pretty good, though it's been a long day.",
			"Can't complain. What brings you here?",
		}
	default:
		return []string{
			"I'm doing well, thanks for asking!",
			"Pretty good, just a bit tired.",
			"Not too bad. How about yourself?",
		}
	}
}

// FallbackSuggestions replace a failed suggestion generation so the client
// always has something to offer.
func FallbackSuggestions(d Difficulty) []string {
	switch d {
	case DifficultyBeginner:
		return []string{"I like that!", "Tell me more.", "What about you?"}
	case DifficultyAdvanced:
		return []string{"That's a great point.", "I hadn't thought of it that way.", "What's your take on this?"}
	default:
		return []string{"That's interesting.", "I see what you mean.", "How do you feel about it?"}
	}
}
