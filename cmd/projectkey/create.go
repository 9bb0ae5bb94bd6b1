package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/vaultfile"
)

var createGenerateKeyfile string

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVar(&createGenerateKeyfile, "generate-keyfile", "", "Generate a new keyfile at this path and bind the vault to it")
}

var createCmd = &cobra.Command{
	Use:   "create [path]",
	Short: "Create a new encrypted vault",
	Long: `Create a new encrypted vault file.

Examples:
  # Create the default vault
  projectkey create

  # Create a vault at an explicit path with a generated keyfile
  projectkey create /vaults/work.pkv --generate-keyfile /vaults/work.key`,
	Args: cobra.MaximumNArgs(1),
	RunE: executeCreate,
}

func executeCreate(cmd *cobra.Command, args []string) error {
	path := resolveVaultPath(args)

	keyfile := flagKeyfile
	if createGenerateKeyfile != "" {
		if err := vaultfile.GenerateKeyfile(createGenerateKeyfile); err != nil {
			return fmt.Errorf("failed to generate keyfile: %w", err)
		}
		fmt.Printf("Keyfile written to %s. Store it separately from the vault.\n", createGenerateKeyfile)
		keyfile = createGenerateKeyfile
	}

	password, err := promptNewPassword()
	if err != nil {
		return err
	}
	if err := session.Create(path, password, keyfile); err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	fmt.Printf("Vault created at %s\n", path)
	return nil
}
