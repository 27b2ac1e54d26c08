package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/magloop/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run magloop as an MCP (Model Context Protocol) server",
		Long: `Start an MCP server that exposes magloop over stdio:

  • generate_simulation - Generate and validate a simulation program
  • search_knowledge    - Regex search over rules, glossary and examples
  • list_runs           - Recently recorded runs
  • get_run             - One recorded run with its attempt trace

Example client configuration:

  {
    "mcpServers": {
      "magloop": {
        "command": "magloop",
        "args": ["mcp-server"]
      }
    }
  }
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			p, err := e.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "magloop",
				Version:   version,
				Runner:    p.loop,
				Knowledge: p.knowledge,
				Journal:   p.db,
				Closer:    p,
				Logger:    e.logger,
			})
			if err != nil {
				p.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			// Blocks until the client disconnects or SIGTERM/SIGINT.
			if err := server.Run(cmd.Context()); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
