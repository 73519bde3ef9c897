package services

import (
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
)

// NormalizeAnswer canonicalizes free text for comparison: accents are folded
// to ASCII, case is folded, anything that is not a letter, digit or space is
// removed and whitespace runs collapse to a single space.
// "  Luka  Modrić! " becomes "luka modric".
func NormalizeAnswer(raw string) string {
	folded := cases.Fold().String(unidecode.Unidecode(raw))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MatchAnswer reports whether input matches one of accepted. Both sides are
// normalized; a match is substring containment in either direction, so a
// surname alone matches the full name. Input that normalizes to nothing
// never matches.
func MatchAnswer(input string, accepted []string) bool {
	guess := NormalizeAnswer(input)
	if guess == "" {
		return false
	}
	for _, a := range accepted {
		want := NormalizeAnswer(a)
		if want == "" {
			continue
		}
		if strings.Contains(want, guess) || strings.Contains(guess, want) {
			return true
		}
	}
	return false
}
