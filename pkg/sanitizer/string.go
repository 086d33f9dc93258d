package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims surrounding whitespace and collapses inner
// whitespace runs to a single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeHospital(hospital string) string {
	return TrimAndNormalize(hospital)
}

// NormalizeSpecialty keeps the stored casing but canonicalizes spacing,
// so equality checks only have to be case-insensitive.
func NormalizeSpecialty(specialty string) string {
	return TrimAndNormalize(specialty)
}
