package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the backend completion cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached completion",
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

			n, err := db.ClearCompletions(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]int64{"cleared": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached completion(s)\n", n)
			return nil
		},
	})
	return cmd
}
