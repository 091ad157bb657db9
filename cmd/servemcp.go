package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"intakectl/internal/mcpserver"
	"intakectl/pkg/logging"
)

func newServeMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose the checks as MCP tools over stdio",
		Long: `Runs an MCP (Model Context Protocol) server on stdin/stdout exposing
the list_formats, verify_fixture, coverage, taxonomy and run_checks tools.

Configure it in your AI assistant's MCP settings:

  {
    "mcpServers": {
      "intakectl": {
        "command": "intakectl",
        "args": ["serve-mcp", "--root", "/path/to/intake-formats"]
      }
    }
  }

Logs are written to stderr so that they never mix with the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			server := mcpserver.New(rt.cfg, rt.manager, rt.normalizer, rootCmd.Version)
			if err := server.ServeStdio(); err != nil {
				logging.Error("MCPServer", err, "Server stopped")
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
