package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "magloop",
		Short: "Generate validated cmtj magnetic simulations",
		Long: `magloop turns a plain-language request into a cmtj simulation program.

It retrieves binding rules, glossary terms and canonical examples from a
knowledge base, asks a generative backend for a program, runs the program
in a sandboxed Python interpreter and feeds any error back for repair until
the program runs or the attempt budget is spent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $MAGLOOP_CONFIG or <data-dir>/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory for the run journal and cache (default ~/.magloop)")
	rootCmd.PersistentFlags().String("knowledge", "", "Knowledge directory (default <data-dir>/knowledge, built-in seeds when absent)")
	rootCmd.PersistentFlags().Bool("debug", false, "Verbose logging to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newBatchCmd(),
		newKBCmd(),
		newRunsCmd(),
		newCacheCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "magloop version %s\n", version)
			return nil
		},
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
