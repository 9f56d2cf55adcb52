package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ParamCase converts a free-form label into lower-case words joined by dashes:
// "Jane Doe" -> "jane-doe", "JaneDoe" -> "jane-doe", "José  Álvarez_Jr." -> "jose-alvarez-jr".
// Accents are folded, every run of non-alphanumeric characters is a separator and
// case transitions inside a word split it.
func ParamCase(label string) string {
	folded := foldMarks(label)

	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	rs := []rune(folded)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(current) > 0 && unicode.IsUpper(r) {
			prev := current[len(current)-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			// "janeDoe" splits before D, "XMLFile" splits before F
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()

	return strings.Join(words, "-")
}

func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
