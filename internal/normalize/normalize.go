package normalize

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrEmpty indicates the value is blank after normalization.
	ErrEmpty = errors.New("empty value")
)

var spaceRe = regexp.MustCompile(`\s+`)

// Make canonicalises a vehicle make as published upstream.
// Examples:
//
//	" mercedes  benz " -> "MERCEDES BENZ"
//	"Citroën"          -> "CITROËN"
func Make(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = spaceRe.ReplaceAllString(s, " ")
	// Casers are stateful; one per call.
	return cases.Upper(language.Und).String(s)
}

// Label trims and collapses whitespace but keeps case; used for fuel types,
// vehicle types and COE categories.
func Label(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// MakeStrict is Make that rejects blank input.
func MakeStrict(s string) (string, error) {
	m := Make(s)
	if m == "" {
		return "", ErrEmpty
	}
	return m, nil
}

// Slug turns "coe 2024-01" into "coe-2024-01".
func Slug(parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, " "))
	var b strings.Builder
	dash := false
	for _, r := range joined {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
