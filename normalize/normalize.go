// Package normalize provides deterministic text folding for retrieval and
// quote matching. Normalization must behave identically on every platform,
// so it avoids locale-sensitive casing and applies explicit code point
// replacements only.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// matchReplacer folds typographic punctuation onto the ASCII characters a
// model is likely to emit. Generated text and source text frequently disagree
// on quote and dash style for the same content.
var matchReplacer = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"–", "-", // en dash
	"—", "-", // em dash
)

// Normalize folds text onto a canonical form: NFC compose, lowercase, strip
// zero-width and control characters (line breaks, tabs and spaces survive
// until the collapse), collapse whitespace runs to a single space, trim.
// Normalize(Normalize(x)) == Normalize(x) for all x.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := norm.NFC.String(text)
	t = strings.ToLower(t)

	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		if unicode.In(r, unicode.Cf, unicode.Cc) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Match is the matching-grade variant used for quote verification. On top of
// Normalize it maps curly single and double quotes to straight quotes and
// en/em dashes to hyphen-minus, so both sides of a comparison share one
// alphabet.
func Match(text string) string {
	if text == "" {
		return ""
	}
	return Normalize(matchReplacer.Replace(text))
}
