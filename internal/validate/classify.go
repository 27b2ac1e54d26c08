package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nvandessel/magloop/internal/models"
)

var (
	// reExceptionLine matches the final "Type: message" line of a traceback.
	reExceptionLine = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)(?::\s?(.*))?$`)

	reFrameLine = regexp.MustCompile(`File "[^"]*` + regexp.QuoteMeta(candidateFile) + `", line (\d+)`)

	reNumericMessage = regexp.MustCompile(`(?i)\b(nan|inf|infinite|overflow|singular|divide by zero|underflow)\b`)
	reUnitMessage    = regexp.MustCompile(`(?i)(\bunits?\b|a/m\b|\btesla\b|\boersted\b|j/m\^?3|dimension mismatch|incompatible dimensions)`)
)

var syntaxErrors = map[string]bool{
	"SyntaxError":      true,
	"IndentationError": true,
	"TabError":         true,
}

var importErrors = map[string]bool{
	"ModuleNotFoundError": true,
	"ImportError":         true,
}

var numericErrors = map[string]bool{
	"ZeroDivisionError":  true,
	"FloatingPointError": true,
	"OverflowError":      true,
	"LinAlgError":        true,
}

// Classify turns interpreter stderr into a diagnostic and a category.
// Output with no recognisable exception line is categorised as unknown,
// with the last non-empty line as its message.
func Classify(stderr string) (models.Diagnostic, models.Category) {
	lines := strings.Split(strings.TrimRight(stderr, "\n"), "\n")
	diag := models.Diagnostic{Traceback: strings.TrimSpace(stderr)}

	excIdx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		m := reExceptionLine.FindStringSubmatch(strings.TrimRight(lines[i], "\r "))
		if m != nil && looksLikeException(m[1]) {
			diag.ErrorType = m[1]
			diag.Message = strings.TrimSpace(m[2])
			excIdx = i
			break
		}
	}
	if excIdx < 0 {
		diag.Message = lastNonEmpty(lines)
		return diag, models.CategoryUnknown
	}

	diag.Line = lastFrameLine(lines[:excIdx])
	short := shortName(diag.ErrorType)
	switch {
	case syntaxErrors[short]:
		diag.Column = caretColumn(lines[:excIdx])
		return diag, models.CategorySyntax
	case importErrors[short]:
		return diag, models.CategoryMissingDependency
	case numericErrors[short]:
		return diag, models.CategoryNumeric
	case reUnitMessage.MatchString(diag.Message):
		return diag, models.CategoryUnitMismatch
	case reNumericMessage.MatchString(diag.Message):
		return diag, models.CategoryNumeric
	default:
		return diag, models.CategoryRuntime
	}
}

func looksLikeException(name string) bool {
	short := shortName(name)
	for _, suffix := range []string{"Error", "Exception", "Exit", "Interrupt", "Warning"} {
		if strings.HasSuffix(short, suffix) {
			return true
		}
	}
	return false
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func lastFrameLine(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if m := reFrameLine.FindStringSubmatch(lines[i]); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n
		}
	}
	return 0
}

// caretColumn derives a 1-based column from the "^" marker Python prints
// under the offending source line.
func caretColumn(lines []string) int {
	for i := len(lines) - 1; i > 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.Trim(trimmed, "^~") != "" {
			continue
		}
		caret := strings.IndexByte(lines[i], '^')
		src := lines[i-1]
		indent := len(src) - len(strings.TrimLeft(src, " "))
		if col := caret - indent + 1; col > 0 {
			return col
		}
		return 0
	}
	return 0
}

func lastNonEmpty(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
