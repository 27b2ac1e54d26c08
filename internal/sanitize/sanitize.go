// Package sanitize cleans text that flows into generation prompts. Knowledge
// bodies, user requests and interpreter output are all untrusted: they are
// stripped of control characters and markup that could break the prompt
// layout while keeping their meaning.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxProseLength is the maximum allowed length for knowledge prose.
const MaxProseLength = 4000

// MaxRequestLength is the maximum allowed length for a user request.
const MaxRequestLength = 2000

// MaxDiagnosticLength is the maximum length of interpreter output fed back for repair.
const MaxDiagnosticLength = 3000

// MaxTagLength is the maximum allowed length for a tag.
const MaxTagLength = 40

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags,
	// processing instructions, and unclosed tags at end-of-string.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?\s*>|<\?[^?]*\?>|</\s+[a-zA-Z][^>]*>|<[/?!]?[a-zA-Z][^>]*$`)

	reHTMLComment = regexp.MustCompile(`<!--[\s\S]*?-->`)

	// reMarkdownHeading matches markdown headings at the start of a line.
	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	reHorizontalRule = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)

	// reTripleBacktick matches code fence markers.
	reTripleBacktick = regexp.MustCompile("```+")

	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)

	reRepeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// Prose sanitizes knowledge text (rules, glossary definitions, titles) before it
// is placed in a prompt.
//
// The pipeline runs in this order:
//  1. Strip ASCII control characters (except \n, \t)
//  2. Strip HTML comments
//  3. Collapse code fences to a single backtick
//  4. Strip XML/HTML tags outside inline code spans
//  5. Replace markdown headings with list markers
//  6. Remove horizontal rules
//  7. Collapse 3+ newlines to 2
//  8. Trim and truncate to MaxProseLength
//
// Inline spans such as `<id>_mx` are placeholders, not markup, and are kept.
func Prose(input string) string {
	if input == "" {
		return ""
	}
	s := stripControlChars(input)
	s = reHTMLComment.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = stripTags(s)
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reHorizontalRule.ReplaceAllString(s, "")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	return truncate(strings.TrimSpace(s), MaxProseLength)
}

// Request sanitizes user request text before it is quoted in a prompt.
func Request(input string) string {
	if input == "" {
		return ""
	}
	s := stripControlChars(input)
	s = reHTMLComment.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = stripTags(s)
	return truncate(strings.TrimSpace(s), MaxRequestLength)
}

// Code prepares program text for embedding inside a fenced block: control
// characters are removed and any fence marker is broken up so the block
// cannot be closed early. Indentation is preserved.
func Code(input string) string {
	s := stripControlChars(input)
	s = reTripleBacktick.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Repeat("` ", len(m))
	})
	return strings.TrimRight(s, " \n\t")
}

// Diagnostic sanitizes interpreter output. The tail is kept when truncating
// because the raised exception is printed last.
func Diagnostic(input string) string {
	if input == "" {
		return ""
	}
	s := Code(input)
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxDiagnosticLength {
		runes := []rune(s)
		s = "..." + string(runes[len(runes)-MaxDiagnosticLength:])
	}
	return s
}

// Tag normalizes a tag, keeping only [a-z0-9-_/] and collapsing repeated hyphens.
// Spaces become hyphens.
func Tag(input string) string {
	if input == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '/':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	s := reRepeatedHyphens.ReplaceAllString(b.String(), "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxTagLength {
		s = strings.TrimRight(s[:MaxTagLength], "-")
	}
	return s
}

// stripTags removes XML/HTML tags everywhere except inside single-line
// inline code spans. An unmatched backtick, or one whose partner is on a
// later line, does not open a span.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for {
		open := strings.IndexByte(s, '`')
		if open < 0 {
			break
		}
		rest := s[open+1:]
		end := strings.IndexAny(rest, "`\n")
		if end < 0 || rest[end] != '`' {
			b.WriteString(reXMLTag.ReplaceAllString(s[:open+1], ""))
			s = rest
			continue
		}
		b.WriteString(reXMLTag.ReplaceAllString(s[:open], ""))
		b.WriteString(s[open : open+end+2])
		s = rest[end+1:]
	}
	b.WriteString(reXMLTag.ReplaceAllString(s, ""))
	return b.String()
}

// truncate cuts s to max runes without splitting a multi-byte character.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL (0x7F),
// except newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 || r == 0x7F) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
