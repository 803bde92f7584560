package secrets

import "strings"

// maskRune replaces interior characters of masked secrets.
const maskRune = '*'

// Mask returns a display-safe form of a secret with the same length as the
// input: the first and last 4 characters are preserved and everything in
// between is replaced. Secrets shorter than 8 characters keep at most the
// first and last character; secrets of 2 characters or fewer are fully
// masked. The input is never logged or persisted.
func Mask(plaintext string) string {
	runes := []rune(plaintext)
	n := len(runes)

	keep := 4
	if n < 8 {
		keep = 1
	}
	if n <= 2*keep {
		return strings.Repeat(string(maskRune), n)
	}

	var b strings.Builder
	b.Grow(n)
	for i, r := range runes {
		if i < keep || i >= n-keep {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(maskRune)
	}
	return b.String()
}
