package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/config"
	"github.com/storyloom/storyloom/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the story-editor tools over the Model Context Protocol",
	Long: `Expose suggestion, line-commit, and chapter tools to MCP hosts over stdio.

Example Claude Desktop configuration:
  {
    "mcpServers": {
      "storyloom": {
        "command": "storyloom",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return mcp.NewServer(cfg.Server.URL, cfg.Project.ID).Serve()
}
