package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/export"
)

var (
	exportFormat string
	exportOut    string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: csv or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (required)")
	_ = exportCmd.MarkFlagRequired("out")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the vault to a plaintext CSV or JSON file",
	Long: `Export the vault to a plaintext file.

The export excludes the recycle bin and contains plaintext passwords;
treat the output with the same care as the vault password itself.`,
	Args: cobra.NoArgs,
	RunE: executeExport,
}

func executeExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	if err := openVault(); err != nil {
		return err
	}

	entries, err := session.Entries().List()
	if err != nil {
		return err
	}
	groups, err := session.Groups().List()
	if err != nil {
		return err
	}

	if err := export.ToFile(exportOut, format, groups, entries); err != nil {
		return err
	}
	fmt.Printf("Exported %d entries to %s\n", len(entries), exportOut)
	return nil
}
