package ticket

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\t", " ",
	"‘", "'", "’", "'", "‚", ",", "‛", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`, "″", `"`,
	"«", `"`, "»", `"`,
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-", "−", "-",
	"…", "...",
	"•", "*", "·", "*",
	"\u00a0", " ", "\u2009", " ", "\u202f", " ",
	"½", "1/2", "¼", "1/4", "¾", "3/4",
	"×", "x",
)

// Letters without a canonical decomposition into base letter + mark.
var transliterations = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
)

// Sanitize reduces s to the printable ASCII subset the device renders reliably:
// smart punctuation becomes plain ASCII, accented Latin letters lose their
// accents, and every other non-ASCII or control rune except '\n' is dropped.
func Sanitize(s string) string {
	s = punctuation.Replace(s)
	s = transliterations.Replace(s)

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r > unicode.MaxASCII || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
