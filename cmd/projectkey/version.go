package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/updater"
)

var versionCheck bool

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check the release feed for a newer version")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("projectkey %s\n", version)
		if !versionCheck {
			return nil
		}

		latest, newer, err := updater.New(version, log).Check(cmd.Context())
		if err != nil {
			return fmt.Errorf("version check failed: %w", err)
		}
		if newer {
			fmt.Printf("A newer version is available: %s\n", latest)
		} else {
			fmt.Println("You are on the latest version")
		}
		return nil
	},
}
