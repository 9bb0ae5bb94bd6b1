package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/internal/config"
	"github.com/cpadlab/project-key/pkg/history"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyClearCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the recently opened vaults list",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently opened vaults, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}
		paths, err := store.List()
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Println("No vaults opened yet")
			return nil
		}
		for i, p := range paths {
			fmt.Printf("%2d  %s\n", i+1, p)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the recently opened vaults list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("History cleared")
		return nil
	},
}

func historyStore() (*history.Store, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return history.NewStore(config.HistoryFile(dir)), nil
}
