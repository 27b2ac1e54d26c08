package models

import (
	"regexp"
	"sort"
	"strings"
)

// Request is a user's description of the simulation they want.
// A Request is created per interaction and never mutated afterwards.
type Request struct {
	Text string `json:"text"`

	// Tags are normalized domain keywords inferred from the text.
	Tags []string `json:"tags,omitempty"`

	// Parameters holds numeric values the user named explicitly,
	// keyed by symbol (e.g. "Ms" -> "1.2 T").
	Parameters map[string]string `json:"parameters,omitempty"`
}

// TagInferrer maps free text to normalized tags.
type TagInferrer interface {
	InferTags(text string) []string
}

// NewRequest builds a Request from raw text. When inferrer is nil no tags are attached.
func NewRequest(text string, inferrer TagInferrer) Request {
	req := Request{
		Text:       strings.TrimSpace(text),
		Parameters: ExtractParameters(text),
	}
	if inferrer != nil {
		req.Tags = inferrer.InferTags(req.Text)
	}
	return req
}

// HasTag reports whether the request carries the given tag.
func (r Request) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ParameterNames returns the parameter keys in sorted order.
func (r Request) ParameterNames() []string {
	names := make([]string, 0, len(r.Parameters))
	for k := range r.Parameters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// parameterPattern matches "Ms = 1.2 T", "Ku=3.2e5 J/m^3", "alpha: 0.01".
// Units are limited to SI-style symbols with an optional scale prefix.
var parameterPattern = regexp.MustCompile(
	`\b([A-Za-z][A-Za-z0-9_]{0,15})\s*[=:]\s*(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)(?:\s*([kMGmunp]?(?:T|A/m|J/m\^?3|Hz|Oe|m|s|V|K|A))\b)?`)

// ExtractParameters pulls explicit "name = value [unit]" fragments out of text.
// Later occurrences of the same name win.
func ExtractParameters(text string) map[string]string {
	matches := parameterPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	params := make(map[string]string, len(matches))
	for _, m := range matches {
		value := m[2]
		if m[3] != "" {
			value += " " + m[3]
		}
		params[m[1]] = value
	}
	return params
}
