package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/magloop/internal/knowledge"
	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/seed"
)

func newKBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}
	cmd.AddCommand(newKBInitCmd(), newKBListCmd(), newKBSearchCmd())
	return cmd
}

func newKBInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the built-in rules, glossary and examples to the knowledge directory",
		Long: `Seed the knowledge directory. Safe to re-run: current files are skipped,
outdated seed files are upgraded, and files you edited (removed the
seed_version field) or disabled are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			dir := e.cfg.KnowledgeDirOrDefault()

			res, err := seed.NewSeeder(dir).SeedDirectory(cmd.Context())
			if err != nil {
				return err
			}
			// Load it back so a broken seed fails here rather than on the first run.
			kb, err := knowledge.Load(dir, nil)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"path":    dir,
					"added":   len(res.Added),
					"updated": len(res.Updated),
					"skipped": len(res.Skipped),
					"entries": kb.Len(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base at %s: %d added, %d updated, %d skipped (%d entries)\n",
				dir, len(res.Added), len(res.Updated), len(res.Skipped), kb.Len())
			return nil
		},
	}
}

func newKBListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			kindFlag, _ := cmd.Flags().GetString("kind")
			tag, _ := cmd.Flags().GetString("tag")

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			kb, err := e.loadKnowledge()
			if err != nil {
				return err
			}

			entries := kb.Entries()
			if kindFlag != "" {
				kind, err := models.ParseEntryKind(kindFlag)
				if err != nil {
					return err
				}
				entries = kb.ByKind(kind)
			}
			if tag != "" {
				var kept []*models.KnowledgeEntry
				for _, entry := range entries {
					if entry.HasTag(tag) {
						kept = append(kept, entry)
					}
				}
				entries = kept
			}
			return printEntries(cmd, entries)
		},
	}
	cmd.Flags().String("kind", "", "Only entries of this kind (rule, glossary, example)")
	cmd.Flags().String("tag", "", "Only entries carrying this tag")
	return cmd
}

func newKBSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search entries with a case-insensitive regular expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			kb, err := e.loadKnowledge()
			if err != nil {
				return err
			}
			matches, err := kb.Search(args[0])
			if err != nil {
				return err
			}
			return printEntries(cmd, matches)
		},
	}
}

func printEntries(cmd *cobra.Command, entries []*models.KnowledgeEntry) error {
	if jsonOutput(cmd) {
		if entries == nil {
			entries = []*models.KnowledgeEntry{}
		}
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintf(w, "%-9s %-28s %s", entry.Kind, entry.ID, entry.Label())
		if len(entry.Tags) > 0 {
			fmt.Fprintf(w, "  [%s]", strings.Join(entry.Tags, ", "))
		}
		fmt.Fprintln(w)
	}
	return nil
}
