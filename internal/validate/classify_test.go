package validate

import (
	"testing"

	"github.com/nvandessel/magloop/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		wantType string
		wantMsg  string
		wantLine int
		wantCol  int
		wantCat  models.Category
	}{
		{
			name: "syntax error with caret",
			stderr: `  File "/tmp/magloop-candidate-1/candidate.py", line 3
    j = Junction([layer]
                ^
SyntaxError: '(' was never closed`,
			wantType: "SyntaxError", wantMsg: "'(' was never closed", wantLine: 3, wantCol: 13,
			wantCat: models.CategorySyntax,
		},
		{
			name: "indentation error",
			stderr: `  File "candidate.py", line 5
    print(x)
IndentationError: unexpected indent`,
			wantType: "IndentationError", wantMsg: "unexpected indent", wantLine: 5,
			wantCat: models.CategorySyntax,
		},
		{
			name: "missing module",
			stderr: `Traceback (most recent call last):
  File "candidate.py", line 1, in <module>
    import cmtj
ModuleNotFoundError: No module named 'cmtj'`,
			wantType: "ModuleNotFoundError", wantMsg: "No module named 'cmtj'", wantLine: 1,
			wantCat: models.CategoryMissingDependency,
		},
		{
			name: "zero division",
			stderr: `Traceback (most recent call last):
  File "candidate.py", line 9, in <module>
    f = 1 / dt
ZeroDivisionError: division by zero`,
			wantType: "ZeroDivisionError", wantMsg: "division by zero", wantLine: 9,
			wantCat: models.CategoryNumeric,
		},
		{
			name: "dotted numeric type",
			stderr: `Traceback (most recent call last):
  File "candidate.py", line 4, in <module>
numpy.linalg.LinAlgError: Singular matrix`,
			wantType: "numpy.linalg.LinAlgError", wantMsg: "Singular matrix", wantLine: 4,
			wantCat: models.CategoryNumeric,
		},
		{
			name: "nan in message",
			stderr: `Traceback (most recent call last):
  File "candidate.py", line 12, in <module>
ValueError: cannot convert float NaN to integer`,
			wantType: "ValueError", wantMsg: "cannot convert float NaN to integer", wantLine: 12,
			wantCat: models.CategoryNumeric,
		},
		{
			name: "unit mismatch",
			stderr: `Traceback (most recent call last):
  File "candidate.py", line 7, in <module>
ValueError: Ms must be given in Tesla, got A/m`,
			wantType: "ValueError", wantMsg: "Ms must be given in Tesla, got A/m", wantLine: 7,
			wantCat: models.CategoryUnitMismatch,
		},
		{
			name: "runtime error from library frame",
			stderr: `Traceback (most recent call last):
  File "candidate.py", line 20, in <module>
    j.runSimulation(1e-9)
  File "/usr/lib/python3/site-packages/cmtj/__init__.py", line 88, in runSimulation
TypeError: runSimulation(): incompatible function arguments`,
			wantType: "TypeError", wantMsg: "runSimulation(): incompatible function arguments", wantLine: 20,
			wantCat: models.CategoryRuntime,
		},
		{
			name: "exception without message",
			stderr: `Traceback (most recent call last):
  File "candidate.py", line 2, in <module>
KeyboardInterrupt`,
			wantType: "KeyboardInterrupt", wantLine: 2,
			wantCat: models.CategoryRuntime,
		},
		{
			name:    "unparseable",
			stderr:  "Segmentation fault (core dumped)\n",
			wantMsg: "Segmentation fault (core dumped)",
			wantCat: models.CategoryUnknown,
		},
		{
			name:    "empty",
			wantCat: models.CategoryUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag, cat := Classify(tt.stderr)
			if cat != tt.wantCat {
				t.Errorf("category = %s, want %s", cat, tt.wantCat)
			}
			if diag.ErrorType != tt.wantType {
				t.Errorf("ErrorType = %q, want %q", diag.ErrorType, tt.wantType)
			}
			if diag.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", diag.Message, tt.wantMsg)
			}
			if diag.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", diag.Line, tt.wantLine)
			}
			if diag.Column != tt.wantCol {
				t.Errorf("Column = %d, want %d", diag.Column, tt.wantCol)
			}
		})
	}
}

func TestShiftLines(t *testing.T) {
	in := `File "/tmp/x/candidate.py", line 8, in <module>` + "\n" + `File "/lib/other.py", line 8`
	want := `File "/tmp/x/candidate.py", line 3, in <module>` + "\n" + `File "/lib/other.py", line 8`
	if got := shiftLines(in); got != want {
		t.Errorf("shiftLines() = %q, want %q", got, want)
	}
	// Lines inside the preamble are left alone.
	if got := shiftLines(`File "candidate.py", line 2`); got != `File "candidate.py", line 2` {
		t.Errorf("preamble line rewritten: %q", got)
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct{ in, want string }{
		{"x = 1  # Junction", "x = 1  "},
		{"# Layer only here", ""},
		{`s = "# not a comment"  # real`, `s = "# not a comment"  `},
		{`s = 'it\'s # still string'`, `s = 'it\'s # still string'`},
		{"a\n# b\nc", "a\n\nc"},
	}
	for _, tt := range tests {
		if got := StripComments(tt.in); got != tt.want {
			t.Errorf("StripComments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
