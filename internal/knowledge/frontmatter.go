package knowledge

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultPriority is used when an entry does not declare one.
const DefaultPriority = 5

// FrontMatter is the YAML header of a markdown or text knowledge file.
type FrontMatter struct {
	ID          string   `yaml:"id,omitempty"`
	Kind        string   `yaml:"kind,omitempty"`
	Title       string   `yaml:"title,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Priority    *int     `yaml:"priority,omitempty"`
	Generic     bool     `yaml:"generic,omitempty"`
	Disabled    bool     `yaml:"disabled,omitempty"`
	SeedVersion string   `yaml:"seed_version,omitempty"`
}

var fenceLine = []byte("---")

// ParseFrontMatter splits data into its YAML header and body. Data without a
// leading "---" line has an empty header.
func ParseFrontMatter(data []byte) (FrontMatter, string, error) {
	var fm FrontMatter
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	first, rest, _ := cutLine(data)
	if !bytes.Equal(bytes.TrimRight(first, " \r"), fenceLine) {
		return fm, string(bytes.TrimSpace(data)), nil
	}

	var header []byte
	for {
		line, next, more := cutLine(rest)
		if bytes.Equal(bytes.TrimRight(line, " \r"), fenceLine) {
			if err := yaml.Unmarshal(header, &fm); err != nil {
				return fm, "", fmt.Errorf("parsing front matter: %w", err)
			}
			return fm, string(bytes.TrimSpace(next)), nil
		}
		if !more {
			return fm, "", fmt.Errorf("front matter is not terminated by ---")
		}
		header = append(header, line...)
		header = append(header, '\n')
		rest = next
	}
}

// FormatFrontMatter renders a header and body in the layout ParseFrontMatter reads.
func FormatFrontMatter(fm FrontMatter, body string) ([]byte, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// cutLine returns the first line of data (without the newline), the rest, and
// whether a newline was found.
func cutLine(data []byte) ([]byte, []byte, bool) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i], data[i+1:], true
	}
	return data, nil, false
}
