package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/magloop/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run journal",
	}
	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			db, err := e.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				if runs == nil {
					runs = []store.RunSummary{}
				}
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %-9s %2d  %s  %s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Status, r.Iterations, r.RunID, truncate(r.Request, 60))
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run with its full attempt trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			db, err := e.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := db.GetRun(cmd.Context(), args[0])
			if errors.Is(err, store.ErrRunNotFound) {
				return fmt.Errorf("no run with id %s", args[0])
			}
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Request: %s\n", res.Request.Text)
			printRun(w, *res, true)
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
