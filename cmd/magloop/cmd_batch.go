package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/magloop/internal/models"
)

type batchItem struct {
	RunID      string `json:"run_id"`
	Request    string `json:"request"`
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	Error      string `json:"error,omitempty"`
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run every request in a file, one per line",
		Long: `Run independent requests concurrently. Blank lines and lines starting
with # are skipped. Use "-" to read from stdin. Every run is recorded in the
journal; inspect them with 'magloop runs show'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxIter, _ := cmd.Flags().GetInt("max-iterations")
			concurrency, _ := cmd.Flags().GetInt("concurrency")

			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open batch file: %w", err)
				}
				defer f.Close()
				src = f
			}
			texts, err := readBatch(src)
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				return fmt.Errorf("no requests in %s", args[0])
			}

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			if concurrency <= 0 {
				concurrency = e.cfg.Loop.Concurrency
			}

			p, err := e.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			results := p.loop.RunBatch(cmd.Context(), texts, maxIter, concurrency)

			items := make([]batchItem, len(results))
			failed := 0
			for i, res := range results {
				items[i] = batchItem{
					RunID:      res.RunID,
					Request:    res.Request.Text,
					Status:     string(res.Status),
					Iterations: res.Iterations(),
					Error:      res.Error,
				}
				if res.Status != models.StatusSuccess {
					failed++
				}
			}

			if jsonOutput(cmd) {
				if err := writeJSON(cmd.OutOrStdout(), items); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				for _, it := range items {
					fmt.Fprintf(w, "%-9s %s  %d attempt(s)  %s\n", it.Status, it.RunID, it.Iterations, it.Request)
				}
				fmt.Fprintf(w, "\n%d of %d succeeded\n", len(items)-failed, len(items))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runs did not succeed", failed, len(items))
			}
			return nil
		},
	}

	cmd.Flags().IntP("max-iterations", "n", 0, "Attempt budget per request (default from config, at most 10)")
	cmd.Flags().IntP("concurrency", "c", 0, "Runs in flight at once (default from config)")
	return cmd
}

func readBatch(r io.Reader) ([]string, error) {
	var texts []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		texts = append(texts, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}
	return texts, nil
}
