package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/security"
)

var (
	generateLength      int
	generateCount       int
	generateNoSymbols   bool
	generateNoNumbers   bool
	generateNoUppercase bool
	generateNoLowercase bool
	generateExclude     string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&generateLength, "length", "l", security.DefaultGeneratedLength, "Password length (8-256)")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 1, "Number of passwords to generate")
	generateCmd.Flags().BoolVar(&generateNoSymbols, "no-symbols", false, "Exclude symbols")
	generateCmd.Flags().BoolVar(&generateNoNumbers, "no-numbers", false, "Exclude numbers")
	generateCmd.Flags().BoolVar(&generateNoUppercase, "no-uppercase", false, "Exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoLowercase, "no-lowercase", false, "Exclude lowercase letters")
	generateCmd.Flags().StringVar(&generateExclude, "exclude", "", "Characters to exclude")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate secure random passwords",
	Long: `Generate cryptographically secure random passwords.

Examples:
  # Generate a 24-character password (default)
  projectkey generate

  # Generate a 32-character password without symbols
  projectkey generate -l 32 --no-symbols

  # Generate password excluding ambiguous characters
  projectkey generate --exclude "0O1lI"`,
	Args: cobra.NoArgs,
	RunE: executeGenerate,
}

func executeGenerate(cmd *cobra.Command, args []string) error {
	if generateCount < 1 || generateCount > 100 {
		return fmt.Errorf("count must be between 1 and 100")
	}

	opts := security.GenerateOptions{
		NoSymbols:   generateNoSymbols,
		NoDigits:    generateNoNumbers,
		NoUppercase: generateNoUppercase,
		NoLowercase: generateNoLowercase,
		Exclude:     generateExclude,
	}
	for i := 0; i < generateCount; i++ {
		password, err := security.GeneratePassword(generateLength, opts)
		if err != nil {
			return err
		}
		fmt.Println(password)
	}
	return nil
}
