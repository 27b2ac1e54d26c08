// Package tokens estimates prompt size for budget checks.
package tokens

import "unicode"

// charsPerToken is the average number of characters per token for mixed
// English and Python text.
const charsPerToken = 4

// Estimate returns an approximate token count for text.
//
// Characters are counted as runes so unit symbols like "µ" or "Ω" weigh the
// same as ASCII. A run of blanks counts once, since tokenizers fold Python
// indentation into a single token.
func Estimate(text string) int {
	n := 0
	inBlank := false
	for _, r := range text {
		if r == ' ' || r == '\t' {
			if inBlank {
				continue
			}
			inBlank = true
		} else {
			inBlank = false
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		n++
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Fits reports whether text stays within budget. A non-positive budget is unlimited.
func Fits(text string, budget int) bool {
	return budget <= 0 || Estimate(text) <= budget
}
