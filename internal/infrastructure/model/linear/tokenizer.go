package linear

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	analyzerWord   = "word"
	analyzerCharWB = "char_wb"

	zeroWidthSpace = '\u200b'
)

func normalizeText(s string, lowercase bool) string {
	s = norm.NFC.String(s)
	if lowercase {
		s = strings.ToLower(s)
	}
	return s
}

// isWordRune keeps Khmer consonants, dependent vowels and signs together:
// vowels and diacritics are combining marks, not letters.
func isWordRune(r rune) bool {
	if r == zeroWidthSpace {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || r == '_'
}

func tokenizeWords(s string, minRunes int) []string {
	if s == "" {
		return nil
	}
	if minRunes <= 0 {
		minRunes = 1
	}
	out := make([]string, 0, 32)
	var b strings.Builder
	n := 0
	flush := func() {
		if n >= minRunes {
			out = append(out, b.String())
		}
		b.Reset()
		n = 0
	}
	for _, r := range s {
		if isWordRune(r) {
			b.WriteRune(r)
			n++
			continue
		}
		if n > 0 {
			flush()
		}
	}
	if n > 0 {
		flush()
	}
	return out
}

func wordNgrams(tokens []string, minN, maxN int) []string {
	if minN == 1 && maxN == 1 {
		return tokens
	}
	out := make([]string, 0, len(tokens)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// charWBNgrams builds character n-grams inside space-padded words. A word
// shorter than n yields a single padded gram. Words split on whitespace
// only, so a zero width space stays inside the grams.
func charWBNgrams(s string, minN, maxN int) []string {
	out := make([]string, 0, len(s))
	for _, word := range strings.Fields(s) {
		padded := []rune(" " + word + " ")
		for n := minN; n <= maxN; n++ {
			offset := 0
			end := min(n, len(padded))
			out = append(out, string(padded[offset:end]))
			for offset+n < len(padded) {
				offset++
				out = append(out, string(padded[offset:offset+n]))
			}
			if offset == 0 {
				break
			}
		}
	}
	return out
}
