package cli

import (
	"github.com/spf13/cobra"

	"github.com/mvp-joe/noir-analyzer/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing the lint as a tool",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
run the lint on a Noir project.

The MCP server:
- Provides the noir_lint tool (manifest_path, optional entry_points and package)
- Returns the json report, identical to "noir-analyzer lint --format json"
- Communicates via stdio (standard MCP transport)

Example:
  noir-analyzer mcp`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.NewServer(Version, logger).Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
