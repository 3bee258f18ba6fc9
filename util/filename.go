package util

import (
	"strings"
	"unicode"
)

// Characters that are unsafe in filenames on at least one common platform.
const unsafeFilenameChars = `/\:*?"<>|~#%&{}$!'@+` + "`"

const maxFilenameLength = 255

// SafeFilename turns an arbitrary title into something usable as a filename (without extension). Unsafe and control
// characters are dropped, whitespace runs collapse to a single space, and leading/trailing dots and spaces are
// trimmed. An empty result is replaced by fallback.
func SafeFilename(title string, fallback string) string {
	builder := strings.Builder{}
	lastSpace := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				builder.WriteRune(' ')
			}
			lastSpace = true
			continue
		case unicode.IsControl(r), strings.ContainsRune(unsafeFilenameChars, r):
			continue
		}
		lastSpace = false
		builder.WriteRune(r)
	}
	name := strings.Trim(builder.String(), ". ")
	for len(name) > maxFilenameLength-16 {
		runes := []rune(name)
		name = string(runes[:len(runes)-1])
	}
	if name == "" {
		return fallback
	}
	return name
}
