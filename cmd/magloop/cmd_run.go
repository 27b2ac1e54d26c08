package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/magloop/internal/models"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [request...]",
		Short: "Generate and validate a simulation for one request",
		Long: `Generate a cmtj simulation program for a plain-language request.

The request is taken from the arguments, or from --file, or from stdin
when neither is given. The command exits non-zero unless a program ran
successfully.

Example:
  magloop run "PIMM spectrum of a CoFeB free layer with Ms = 1.2 T"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			maxIter, _ := cmd.Flags().GetInt("max-iterations")
			out, _ := cmd.Flags().GetString("out")

			text, err := readRequest(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			p, err := e.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			res := p.loop.Run(cmd.Context(), text, maxIter)

			if out != "" && res.FinalCode != "" {
				if err := os.WriteFile(out, []byte(res.FinalCode+"\n"), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
			}

			if jsonOutput(cmd) {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printRun(cmd.OutOrStdout(), res, out == "")
			}
			return runError(res)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Read the request from a file")
	cmd.Flags().IntP("max-iterations", "n", 0, "Attempt budget (default from config, at most 10)")
	cmd.Flags().StringP("out", "o", "", "Write the final program to this file")
	return cmd
}

func readRequest(args []string, file string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read request: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read request from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no request given (pass it as arguments, --file or stdin)")
	}
	return string(data), nil
}

// runError maps a non-successful run to the command's error.
func runError(res models.RunResult) error {
	switch res.Status {
	case models.StatusSuccess:
		return nil
	case models.StatusExhausted:
		return fmt.Errorf("run %s exhausted after %d attempts", res.RunID, res.Iterations())
	default:
		return fmt.Errorf("run %s failed: %s", res.RunID, res.Error)
	}
}

func printRun(w io.Writer, res models.RunResult, withCode bool) {
	fmt.Fprintf(w, "Run %s: %s after %d attempt(s)\n", res.RunID, res.Status, res.Iterations())
	if len(res.Retrieved) > 0 {
		fmt.Fprintf(w, "Grounding: %s\n", strings.Join(res.Retrieved, ", "))
	}
	for _, a := range res.Trace.Attempts() {
		fmt.Fprintf(w, "  [%d] %s\n", a.Artifact.Iteration, a.Outcome.Summary())
	}
	if res.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", res.Error)
	}
	if withCode && res.FinalCode != "" {
		fmt.Fprintf(w, "\n%s\n", res.FinalCode)
	}
}
