package synth

import (
	"regexp"
	"strings"
)

var (
	rePythonFence = regexp.MustCompile("(?s)```[ \\t]*(?:python3?|py)[ \\t]*\\r?\\n(.*?)```")
	reAnyFence    = regexp.MustCompile("(?s)```[^\\n]*\\n(.*?)```")
	reOpenFence   = regexp.MustCompile("(?s)^```[^\\n]*\\n(.*)$")
)

// ExtractCode pulls the program out of a backend reply: the first python
// fenced block, else the first fenced block of any language, else the whole
// reply. A reply that opens a fence and never closes it yields everything
// after the opening line. The result is trimmed; empty means no code.
func ExtractCode(reply string) string {
	if m := rePythonFence.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := reAnyFence.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(reply)
	if strings.Trim(trimmed, "`") == "" {
		return ""
	}
	if m := reOpenFence.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}
