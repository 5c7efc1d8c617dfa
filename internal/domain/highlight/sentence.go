package highlight

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinSentenceLength is the shortest sentence, in runes, worth highlighting.
const DefaultMinSentenceLength = 20

// SplitSentences splits text after '.', '!' or '?' when followed by whitespace.
// The whitespace run is the boundary; pieces are trimmed and those shorter than minLen runes dropped.
func SplitSentences(text string, minLen int) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		j := i
		for j < len(text) {
			ws, n := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += n
		}
		if j == i {
			continue
		}

		out = appendSentence(out, text[start:i], minLen)
		start = j
		i = j
	}
	return appendSentence(out, text[start:], minLen)
}

func appendSentence(out []string, piece string, minLen int) []string {
	piece = strings.TrimSpace(piece)
	if piece == "" || utf8.RuneCountInString(piece) < minLen {
		return out
	}
	return append(out, piece)
}
