package util

import "strings"

// NormalizeName lowercases a user-supplied account/category name for
// storage. Identity comparisons are always done on the normalized form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DisplayName proper-cases a stored lowercase name for presentation,
// e.g. "main wallet" -> "Main Wallet".
func DisplayName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
