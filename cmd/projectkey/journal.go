package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalVerifyCmd)
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the tamper-evident activity journal",
}

var journalVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the HMAC chain of the activity journal",
	Long: `Verify the activity journal.

The journal's signing key is derived from the vault key, so verification
requires opening the vault first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openVault(); err != nil {
			return err
		}

		j := session.Journal()
		if j == nil {
			return fmt.Errorf("journaling is not enabled")
		}
		count, err := j.Verify()
		if err != nil {
			return fmt.Errorf("journal verification failed after %d valid records: %w", count, err)
		}
		fmt.Printf("Journal intact: %d records verified\n", count)
		return nil
	},
}
