package main

import (
	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Serve the vault to AI agents over MCP (read-only, passwords never exposed)",
	Long: `Start an MCP server on stdio.

The master password is read from the PROJECTKEY_PASSWORD environment
variable, which is cleared immediately after startup. All tools are
read-only and never return plaintext passwords.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scheduler, err := newScheduler()
		if err != nil {
			return err
		}

		server, err := mcp.NewServer(mcp.ServerOptions{
			VaultPath: cfg.VaultPath,
			Keyfile:   flagKeyfile,
			Version:   version,
		}, session, scheduler, log)
		if err != nil {
			return err
		}
		defer server.Close()

		return server.Run(cmd.Context())
	},
}
