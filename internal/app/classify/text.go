package classify

import (
	"strings"
	"unicode"
)

// normalize lowercases text and turns every rune that is not a letter,
// digit or apostrophe into a single space. The result is padded with a
// space on both sides so phrases can be matched on word boundaries.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '’' || r == '\'':
			b.WriteByte('\'')
			lastSpace = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// tokens splits normalised text into words.
func tokens(text string) []string {
	return strings.Fields(normalize(text))
}

// matchPhrases returns the phrases that occur as whole words in normalised text.
func matchPhrases(normalized string, phrases []string) []string {
	var out []string
	for _, p := range phrases {
		if strings.Contains(normalized, " "+p+" ") {
			out = append(out, p)
		}
	}
	return out
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
