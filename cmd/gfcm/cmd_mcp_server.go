package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  gfcm_simulate   Simulate a map given inline tables
  gfcm_metrics    Compute graph metrics of a weight matrix
  gfcm_graph      Render the concept graph as DOT or JSON
  gfcm_history    List or fetch recorded runs

Resources:
  gfcm://runs/recent   Markdown list of recent runs
  gfcm://runs/{id}     A recorded run as JSON

Logs go to stderr. Tool calls are audited in .gfcm/audit.jsonl.

Example MCP client configuration:
  {"command": "gfcm", "args": ["mcp-server", "--root", "/path/to/project"]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "gfcm",
				Version:   version,
				Root:      projectRoot(cmd, cfg),
				GFCM:      cfg,
				LogWriter: cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(cmd.Context())
		},
	}
}
