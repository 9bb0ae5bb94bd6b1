package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/vault"
)

var (
	groupIcon   int
	groupColor  string
	groupMoveTo string
	groupForce  bool
)

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupListCmd, groupCreateCmd, groupRenameCmd, groupDeleteCmd)

	for _, c := range []*cobra.Command{groupCreateCmd, groupRenameCmd} {
		c.Flags().IntVar(&groupIcon, "icon", 0, "Icon id")
		c.Flags().StringVar(&groupColor, "color", "", "Color tag, e.g. #ff8800")
	}
	groupDeleteCmd.Flags().StringVar(&groupMoveTo, "move-to", "", "Move contained entries to this group first")
	groupDeleteCmd.Flags().BoolVar(&groupForce, "force", false, "Erase contained entries")
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage vault groups",
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openVault(); err != nil {
			return err
		}

		groups, err := session.Groups().List()
		if err != nil {
			return err
		}
		vault.SortGroups(groups, vault.SortByName, false)

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENTRIES\tCOLOR")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%d\t%s\n", g.Name, g.EntryCount, g.Color)
		}
		return w.Flush()
	},
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openVault(); err != nil {
			return err
		}

		created, err := session.Groups().Create(vault.Group{
			Name:  args[0],
			Icon:  groupIcon,
			Color: groupColor,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Group %s created\n", created.Name)
		return nil
	},
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a group or change its appearance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openVault(); err != nil {
			return err
		}

		updated, err := session.Groups().Update(args[0], vault.Group{
			Name:  args[1],
			Icon:  groupIcon,
			Color: groupColor,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Group renamed to %s\n", updated.Name)
		return nil
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openVault(); err != nil {
			return err
		}

		err := session.Groups().Delete(args[0], vault.DeleteOptions{
			MoveTo: groupMoveTo,
			Force:  groupForce,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Group %s deleted\n", args[0])
		return nil
	},
}
