package assembly

import (
	"strings"

	"github.com/nvandessel/magloop/internal/tokens"
)

// Section is one titled block of a prompt.
type Section struct {
	Title string
	Body  string

	// Droppable sections may be removed to fit the token budget. They are
	// dropped from the last one backwards.
	Droppable bool
}

// CompiledPrompt is the rendered prompt.
type CompiledPrompt struct {
	Text        string
	Sections    []Section
	Dropped     int
	TotalTokens int
}

// Compiler renders sections into a prompt within a token budget.
type Compiler struct {
	// TokenBudget caps the prompt size; zero or negative means unlimited.
	TokenBudget int
}

// NewCompiler creates a compiler with the given budget.
func NewCompiler(budget int) *Compiler {
	return &Compiler{TokenBudget: budget}
}

// Compile renders sections in order, dropping droppable ones from the end
// until the prompt fits. Required sections are never dropped, so the result
// may still exceed the budget.
func (c *Compiler) Compile(sections []Section) CompiledPrompt {
	kept := make([]Section, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s.Body) != "" {
			kept = append(kept, s)
		}
	}

	text := render(kept)
	dropped := 0
	for !tokens.Fits(text, c.TokenBudget) {
		idx := lastDroppable(kept)
		if idx < 0 {
			break
		}
		kept = append(kept[:idx], kept[idx+1:]...)
		dropped++
		text = render(kept)
	}

	return CompiledPrompt{
		Text:        text,
		Sections:    kept,
		Dropped:     dropped,
		TotalTokens: tokens.Estimate(text),
	}
}

func lastDroppable(sections []Section) int {
	for i := len(sections) - 1; i >= 0; i-- {
		if sections[i].Droppable {
			return i
		}
	}
	return -1
}

func render(sections []Section) string {
	if len(sections) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, s := range sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if s.Title != "" {
			sb.WriteString("## ")
			sb.WriteString(s.Title)
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimRight(s.Body, "\n"))
	}
	sb.WriteString("\n")
	return sb.String()
}
