package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeText trims, strips diacritics, and uppercases text so that
// "Málaga", "MALAGA" and " malaga " compare equal in pattern and status
// comparisons.
func NormalizeText(s string) string {
	out, _, err := transform.String(foldTransformer(), s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}
