package list

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Initials returns the upper-cased first letters of the first and last words of
// fullName, one letter for a single word, or "??" when there are no words.
func Initials(fullName string) string {
	words := strings.Fields(fullName)
	if len(words) == 0 {
		return "??"
	}
	first := firstRune(words[0])
	if len(words) == 1 {
		return string(first)
	}
	return string(first) + string(firstRune(words[len(words)-1]))
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.ToUpper(r)
}

// FormatAddress renders "line1, line2, city - pin", skipping empty parts.
func FormatAddress(line1, line2, city, pin string) string {
	var b strings.Builder
	b.WriteString(line1)
	if line2 != "" {
		b.WriteString(", ")
		b.WriteString(line2)
	}
	if city != "" {
		b.WriteString(", ")
		b.WriteString(city)
	}
	if pin != "" {
		b.WriteString(" - ")
		b.WriteString(pin)
	}
	return b.String()
}
