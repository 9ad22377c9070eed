package booking

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/intent"
)

var namePattern = regexp.MustCompile(`^[\x{0900}-\x{097F}a-zA-Z.\s]+$`)

// ValidateName accepts Latin or Devanagari letters, dots and spaces.
func ValidateName(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && namePattern.MatchString(s)
}

// ValidatePhone maps Devanagari digits, drops everything that is not a
// digit, and requires exactly ten digits. It returns the normalized number.
func ValidatePhone(s string) (string, bool) {
	s = intent.NormalizeDigits(s)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 10 {
		return "", false
	}
	return digits, true
}

var (
	yesWords = map[string]bool{"yes": true, "y": true, "haan": true, "han": true, "ho": true, "हाँ": true, "हां": true, "हो": true, "confirm": true}
	noWords  = map[string]bool{"no": true, "n": true, "nahi": true, "nahin": true, "nko": true, "नहीं": true, "नाही": true, "नको": true, "cancel": true}
)

func confirmWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// IsYes reports whether s is an affirmative answer in any supported language.
func IsYes(s string) bool { return yesWords[confirmWord(s)] }

// IsNo reports whether s is a negative answer in any supported language.
func IsNo(s string) bool { return noWords[confirmWord(s)] }

// MatchDoctors finds doctors whose localized name contains the query, or
// whose first name appears in the query. Titles are ignored on both sides.
func MatchDoctors(docs []hospital.Doctor, query string) []hospital.Doctor {
	q := intent.CleanDoctorToken(query)
	if q == "" {
		return nil
	}
	var out []hospital.Doctor
	for _, d := range docs {
		if doctorMatches(d, q) {
			out = append(out, d)
		}
	}
	return out
}

func doctorMatches(d hospital.Doctor, q string) bool {
	for _, name := range d.Name.All() {
		n := intent.CleanDoctorToken(name)
		if n == "" {
			continue
		}
		if strings.Contains(n, q) {
			return true
		}
		if first := strings.Fields(n)[0]; strings.Contains(q, first) {
			return true
		}
	}
	return false
}
