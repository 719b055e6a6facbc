package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate turns a display name into a URL-friendly slug. Accented Latin
// letters are folded to ASCII.
//
//   - "Música Digital" → "musica-digital"
//   - "Cartões de Oferta" → "cartoes-de-oferta"
//   - "  E-books & Cursos!  " → "e-books-cursos"
func Generate(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(strings.TrimSpace(name)),
	)
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(name))
	}

	return strings.Trim(nonAlnum.ReplaceAllString(folded, "-"), "-")
}
