package provider

import (
	"regexp"
	"strings"
)

var (
	// punctuationRE matches the punctuation class stripped from lookup keys.
	punctuationRE = regexp.MustCompile("[.,/#!$%^&*;:{}=\\-_`~()?\"']")

	whitespaceRE = regexp.MustCompile(`\s+`)
)

// Normalize returns the lookup key for text: lower-cased, punctuation
// stripped, whitespace runs collapsed to one space, trimmed.
// Keys are never shown to the user.
//
// Examples:
//   - "Patient presents with cough." -> "patient presents with cough"
//   - "  Chest   pain (walking)  "    -> "chest pain walking"
func Normalize(text string) string {
	key := strings.ToLower(text)
	key = punctuationRE.ReplaceAllString(key, "")
	key = whitespaceRE.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}
