package llm

import (
	"fmt"
	"strings"

	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
)

const evaluationSystemPrompt = "You are an expert English teacher. Respond only in valid JSON format."

const evaluationPromptTemplate = `You are an expert English teacher. Analyze the following student's English sentence from a SPOKEN CONVERSATION.

Student's sentence: "%[1]s"

Evaluate the sentence for:

1. **Grammar Issue**:
   - ONLY if there's an actual grammar error (wrong tense, subject-verb agreement, wrong article, etc.)
   - Example: "I want go school" → wrong (missing "to")
   - Example: "She don't like it" → wrong (should be "doesn't")

2. **Naturalness Issue**:
   - Grammatically correct but sounds awkward/unnatural to native speakers
   - Better native-like alternatives exist
   - Example: "I think that is good" → correct but "I think it's good" sounds more natural

CRITICAL RULES FOR SPOKEN CONVERSATION:
- **DO NOT flag conversational/colloquial expressions as grammar errors**
- Short answers like "Absolutely, pork" or "Sure, coffee" are NATURAL in conversation
- Fragment answers in response to questions are ACCEPTABLE (e.g., "Because I love it" as a standalone answer)
- Ellipsis (omitting subject/verb when context is clear) is NORMAL in spoken English
- Only flag ACTUAL errors that would confuse meaning or sound wrong to native speakers

IMPORTANT:
- Be LENIENT with spoken conversation style
- Only report issues if they actually harm clarity or sound wrong
- If the sentence is natural for spoken conversation, set has_issues to false
- Provide explanations in Korean

Respond in JSON format:
{
  "has_issues": true/false,
  "user_sentence": "%[1]s",
  "grammar_issue": {
    "has_issue": true/false,
    "corrected": "corrected version (only if has_issue is true)",
    "explanation": "Korean explanation (only if has_issue is true)"
  },
  "naturalness_issue": {
    "has_issue": true/false,
    "suggestion": "more natural expression (only if has_issue is true)",
    "explanation": "Korean explanation (only if has_issue is true)"
  }
}`

func evaluationPrompt(sentence string) string {
	return fmt.Sprintf(evaluationPromptTemplate, sentence)
}

const suggestSystemPrompt = "You are a helpful assistant that generates natural conversation suggestions. Return only valid JSON."

// suggestHistoryWindow bounds how much context the suggestion prompt carries.
const suggestHistoryWindow = 6

func suggestPrompt(history []Message, personaName string, difficulty lesson.Difficulty) string {
	if len(history) > suggestHistoryWindow {
		history = history[len(history)-suggestHistoryWindow:]
	}
	var sb strings.Builder
	for _, msg := range history {
		speaker := personaName
		if msg.Role == RoleUser {
			speaker = "You"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, msg.Content)
	}
	return fmt.Sprintf(`Based on this conversation, suggest 3 short, natural responses the user could say next.

Conversation so far:
%s
Requirements:
- Each response should be 5-10 words maximum
- Make them natural and conversational
- Vary the responses (question, statement, follow-up)
- %s
- Return ONLY a JSON array of 3 strings, nothing else

Example format: ["Response 1", "Response 2", "Response 3"]`, sb.String(), difficulty.VocabHint())
}

const assessSystemPrompt = "You are an expert English teacher who identifies learning patterns. Respond in valid JSON format."

func assessPrompt(items []FeedbackItem) string {
	var details []string
	grammarCount, naturalnessCount := 0, 0
	for _, item := range items {
		var issues []string
		if item.GrammarIssue.HasIssue {
			grammarCount++
			issues = append(issues, fmt.Sprintf("문법: '%s' (%s)", item.GrammarIssue.Corrected, item.GrammarIssue.Explanation))
		}
		if item.NaturalnessIssue.HasIssue {
			naturalnessCount++
			issues = append(issues, fmt.Sprintf("자연스러움: '%s' (%s)", item.NaturalnessIssue.Suggestion, item.NaturalnessIssue.Explanation))
		}
		if len(issues) > 0 {
			details = append(details, fmt.Sprintf("  - %q → %s", item.UserSentence, strings.Join(issues, ", ")))
		}
	}
	summary := "  (모두 완벽한 문장!)"
	if len(details) > 0 {
		summary = strings.Join(details, "\n")
	}
	return fmt.Sprintf(`You are an expert English teacher analyzing a student's conversation performance.

**Collected Feedback Details:**

Total Issues Found:
- Grammar issues: %d개
- Naturalness issues: %d개

Detailed Feedback:
%s

**Task:**
Analyze the patterns in the feedback above and identify the student's **main weaknesses**.
Don't just say "몇 개의 문법 오류" or "몇 개의 표현이 부자연스럽다".

Instead, look for patterns like:
- Are there repeated tense errors?
- Are there issues with articles (a/an/the)?
- Are there preposition mistakes?
- Is sentence structure awkward?
- Are there vocabulary choice issues?
You don't have to follow this exactly. Please analyze the main weaknesses, focusing on aspects like grammar and naturalness.
Provide an insightful analysis in Korean:

1. **Strengths**: What did the student do well?
2. **Main Weaknesses**: Based on the patterns you see in the feedback, what are the specific areas this student needs to focus on? Be specific and analytical.
3. **Actionable Advice**: Concrete steps to improve these weaknesses
4. **Encouragement**: A warm, motivating message

Also provide scores (0-100):
- Grammar score: Based on severity and frequency of grammar errors
- Fluency score: Based on naturalness and expression issues

Respond in JSON format:
{
  "strengths": "Korean description of strengths",
  "main_weaknesses": "Korean description of specific patterns and main weaknesses identified",
  "actionable_advice": "Korean description of concrete improvement steps",
  "encouragement": "Korean encouraging message",
  "scores": {
    "grammar": integer (0-100),
    "fluency": integer (0-100)
  }
}`, grammarCount, naturalnessCount, summary)
}
