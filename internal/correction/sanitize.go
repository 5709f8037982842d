package correction

import (
	"strings"

	"rtscorrect/internal/prompt"
)

// Sanitize cleans raw model output. NUL bytes are removed, an echoed answer
// cue is stripped and surrounding whitespace trimmed. An empty result yields
// original, so an empty correction never replaces the input.
func Sanitize(raw, original string) string {
	s := strings.ReplaceAll(raw, "\x00", "")
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, prompt.AnswerCue))
	if s == "" {
		return original
	}
	return s
}
