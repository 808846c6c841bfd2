package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameFolder builds a fresh chain per call; transformers keep state and
// must not be shared between goroutines.
func nameFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r == '-' || r == '_' {
				return ' '
			}
			return r
		}),
		cases.Fold(),
		norm.NFC,
	)
}

// NormalizeStudentName folds a roster name so that "Jan Novák",
// "jan_novak" and "JAN  NOVAK" compare equal. Dataset folders usually carry
// the underscored form while teachers type the display form.
func NormalizeStudentName(name string) string {
	folded, _, err := transform.String(nameFolder(), name)
	if err != nil {
		folded = strings.ToLower(name)
	}
	return strings.Join(strings.Fields(folded), " ")
}

func SameStudent(a, b string) bool {
	return NormalizeStudentName(a) == NormalizeStudentName(b)
}
