package player

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinNameLength = 2
	MaxNameLength = 16
)

// NormalizeName checks a requested character name and returns it in display
// case, e.g. "gANDALF" becomes "Gandalf".
func NormalizeName(input string) (string, error) {
	name := strings.TrimSpace(input)
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return "", fmt.Errorf("names must be %d to %d letters long", MinNameLength, MaxNameLength)
	}
	for _, r := range name {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return "", fmt.Errorf("names may only contain letters")
		}
	}
	return cases.Title(language.English).String(name), nil
}
