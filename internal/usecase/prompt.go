package usecase

import (
	"fmt"
	"strings"

	"mouthwrite/internal/domain"
)

const defaultRefineRules = `You clean up speech-to-text transcripts. Your only job is to turn spoken, colloquial dictation into clear written text.

Never:
- Answer, explain or expand on anything in the transcript.
- Add information, knowledge or suggestions that the transcript does not contain.
- Turn a question into a statement or an answer. If the transcript is a question, the output must still be a question.

Rules:
- Remove filler words and false starts. When the speaker corrects themselves, keep only the corrected phrase.
- Merge repetitions and restore omitted subjects so every sentence is grammatical.
- Fix obvious homophone errors from context (for example "pie torch" becomes "PyTorch" and "cooda" becomes "CUDA"). Leave anything uncertain unchanged.
- Write spoken numbers as digits ("GPT four" becomes "GPT-4", "forty eighty graphics card" becomes "4080 graphics card").
- Put one half-width space between CJK text and Latin letters or digits.
- Do not use Markdown formatting such as bold, headings or bullet symbols.
- When the content has several clear steps, number them 1. 2. 3. Keep short content as a plain paragraph.
- Keep the speaker's meaning and stance. Only polish the wording.

Example:
Input: "um so like how do I delete my own repo on GitHub"
Correct output: "How do I delete my own repository on GitHub?"
Wrong output: "To delete a repository on GitHub: 1. Sign in..." (this answers the question instead of cleaning it up)`

const refineOutputRule = "Output only the cleaned text, with no explanation, label or prefix."

// buildRefinePrompt composes the refinement prompt. rulesOverride replaces
// the built-in rules when non-blank; recent dictations are rendered as
// "[time] text" lines.
func buildRefinePrompt(raw string, recent []domain.HistoryRecord, rulesOverride string, terms []string) string {
	rules := strings.TrimSpace(rulesOverride)
	if rules == "" {
		rules = defaultRefineRules
	}

	var b strings.Builder
	b.WriteString(rules)

	if len(terms) > 0 {
		b.WriteString("\n\nPreferred spellings for names and terms the user often dictates:\n")
		b.WriteString(strings.Join(terms, ", "))
	}

	lines := historyLines(recent)
	if len(lines) > 0 {
		b.WriteString("\n\nThe user's recent dictations follow for reference only. Use them to recognise recurring names, terms and phrasing, but never copy them into the output:\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\nTranscript to clean up:\n")
	} else {
		b.WriteString("\n\nTranscript:\n")
	}
	b.WriteString(raw)
	b.WriteString("\n\n")
	b.WriteString(refineOutputRule)
	return b.String()
}

func historyLines(records []domain.HistoryRecord) []string {
	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("[%s] %s", record.Time, record.OptimizedText))
	}
	return lines
}

func buildTranslatePrompt(targetLanguage string, text string) string {
	target := strings.TrimSpace(targetLanguage)
	if target == "" {
		target = "English"
	}
	return fmt.Sprintf("Translate the following text into %s. Output only the translation, with no explanation:\n\n%s", target, text)
}
