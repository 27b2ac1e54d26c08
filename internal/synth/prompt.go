package synth

import (
	"fmt"
	"strings"

	"github.com/nvandessel/magloop/internal/assembly"
	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/sanitize"
)

const rolePrompt = `You write Python simulation scripts for the cmtj magnetization-dynamics library.
Your script is executed as-is by a non-interactive interpreter and is rejected if it raises.`

const outputContract = `Reply with exactly one fenced code block that starts with ` + "```python" + ` and contains the complete script.
Do not write any prose before or after the block.
Do not call plt.show() or open windows; save figures to files instead.`

const repairInstructions = `Your previous script failed validation. Fix this specific failure and keep the parts that already work.
Do not start over with a different approach.`

// BuildPrompt renders the prompt for one synthesis call.
func (s *Synthesizer) BuildPrompt(in Input) assembly.CompiledPrompt {
	sections := []assembly.Section{
		{Body: rolePrompt},
		{Title: "Request", Body: requestSection(in.Request)},
		{Title: "Binding constraints", Body: constraintsSection(in.Retrieval.Constraints(), s.groups)},
		{Title: "Glossary", Body: glossarySection(in.Retrieval.Glossary())},
	}
	for _, ex := range in.Retrieval.Examples() {
		sections = append(sections, assembly.Section{
			Title:     "Reference example: " + sanitize.Prose(ex.Label()),
			Body:      fence(ex.Body),
			Droppable: true,
		})
	}
	if in.Iteration > 0 && in.Prior != nil {
		sections = append(sections, assembly.Section{Title: "Previous attempt", Body: repairSection(*in.Prior)})
	}
	sections = append(sections, assembly.Section{Title: "Output", Body: outputContract})

	return s.compiler.Compile(sections)
}

func requestSection(req models.Request) string {
	var sb strings.Builder
	sb.WriteString(sanitize.Request(req.Text))
	if names := req.ParameterNames(); len(names) > 0 {
		sb.WriteString("\n\nUse these parameter values:\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "- %s = %s\n", name, sanitize.Request(req.Parameters[name]))
		}
	}
	return sb.String()
}

// constraintsSection numbers every rule across the grouped sub-sections.
func constraintsSection(rules []*models.KnowledgeEntry, cfg assembly.GroupConfig) string {
	if len(rules) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("You MUST follow every rule below. They override anything the examples suggest.\n")
	n := 0
	for _, g := range assembly.GroupRules(rules, cfg) {
		fmt.Fprintf(&sb, "\n### %s\n", g.Label)
		for _, r := range g.Rules {
			n++
			body := sanitize.Prose(r.Body)
			if r.Title != "" {
				fmt.Fprintf(&sb, "%d. %s: %s\n", n, sanitize.Prose(r.Title), body)
			} else {
				fmt.Fprintf(&sb, "%d. %s\n", n, body)
			}
		}
	}
	return sb.String()
}

func glossarySection(terms []*models.KnowledgeEntry) string {
	var sb strings.Builder
	for _, t := range terms {
		fmt.Fprintf(&sb, "- %s: %s\n", sanitize.Prose(t.Label()), sanitize.Prose(t.Body))
	}
	return sb.String()
}

func repairSection(prior models.Attempt) string {
	var sb strings.Builder
	sb.WriteString(repairInstructions)
	sb.WriteString("\n\n")
	sb.WriteString(fence(prior.Artifact.Code))
	sb.WriteString("\n\nFailure: ")
	sb.WriteString(sanitize.Diagnostic(prior.Outcome.Summary()))
	if d := prior.Outcome.Diagnostic; d != nil && d.Traceback != "" {
		sb.WriteString("\n\nInterpreter output:\n")
		sb.WriteString(fence(sanitize.Diagnostic(d.Traceback)))
	}
	return sb.String()
}

func fence(code string) string {
	return "```python\n" + sanitize.Code(code) + "\n```"
}
