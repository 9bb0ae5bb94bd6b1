package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/security"
	"github.com/cpadlab/project-key/pkg/vault"
)

// Entry command flags
var (
	entryUsername  string
	entryPassword  string
	entryGenerate  bool
	entryURL       string
	entryNotes     string
	entryGroup     string
	entryTags      []string
	entryFavorite  bool
	entryPermanent bool
	entrySortBy    string
	entrySortDesc  bool
	entryShowPass  bool
	searchGroup    string
	searchTags     []string
)

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryAddCmd, entryGetCmd, entryListCmd, entrySearchCmd,
		entryUpdateCmd, entryDeleteCmd, entryRestoreCmd, entryMoveCmd, entryRecycleCmd)

	for _, c := range []*cobra.Command{entryAddCmd, entryUpdateCmd} {
		c.Flags().StringVarP(&entryUsername, "username", "u", "", "Account username")
		c.Flags().StringVarP(&entryPassword, "password", "p", "", "Password (prompted when omitted)")
		c.Flags().BoolVar(&entryGenerate, "generate", false, "Generate a random password instead of prompting")
		c.Flags().StringVar(&entryURL, "url", "", "Associated URL")
		c.Flags().StringVar(&entryNotes, "notes", "", "Free-form notes")
		c.Flags().StringVarP(&entryGroup, "group", "g", "", "Owning group (created when missing)")
		c.Flags().StringSliceVarP(&entryTags, "tag", "t", nil, "Tags (repeatable)")
		c.Flags().BoolVar(&entryFavorite, "favorite", false, "Mark as favorite")
	}

	entryGetCmd.Flags().BoolVar(&entryShowPass, "show-password", false, "Print the plaintext password")
	entryDeleteCmd.Flags().BoolVar(&entryPermanent, "permanent", false, "Erase instead of moving to the recycle bin")
	entryRestoreCmd.Flags().StringVarP(&entryGroup, "group", "g", "", "Restore into this group (default landing group when omitted)")

	for _, c := range []*cobra.Command{entryListCmd, entrySearchCmd, entryRecycleCmd} {
		c.Flags().StringVar(&entrySortBy, "sort", "name", "Sort by name, created_at or updated_at")
		c.Flags().BoolVar(&entrySortDesc, "desc", false, "Sort descending")
	}
	entryListCmd.Flags().StringVarP(&entryGroup, "group", "g", "", "Only entries from this group")
	entrySearchCmd.Flags().StringVarP(&searchGroup, "group", "g", "", "Restrict the search to this group")
	entrySearchCmd.Flags().StringSliceVarP(&searchTags, "tag", "t", nil, "Require these tags (repeatable)")
}

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage vault entries",
}

var entryAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new entry",
	Args:  cobra.ExactArgs(1),
	RunE:  executeEntryAdd,
}

var entryGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one entry",
	Args:  cobra.ExactArgs(1),
	RunE:  executeEntryGet,
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries",
	Args:  cobra.NoArgs,
	RunE:  executeEntryList,
}

var entrySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search entries by title, username, url or notes",
	Args:  cobra.ExactArgs(1),
	RunE:  executeEntrySearch,
}

var entryUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an entry (unset flags keep their current value)",
	Args:  cobra.ExactArgs(1),
	RunE:  executeEntryUpdate,
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Move an entry to the recycle bin, or erase it",
	Args:  cobra.ExactArgs(1),
	RunE:  executeEntryDelete,
}

var entryRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore an entry from the recycle bin",
	Args:  cobra.ExactArgs(1),
	RunE:  executeEntryRestore,
}

var entryMoveCmd = &cobra.Command{
	Use:   "move <id> <group>",
	Short: "Move an entry to another group",
	Args:  cobra.ExactArgs(2),
	RunE:  executeEntryMove,
}

var entryRecycleCmd = &cobra.Command{
	Use:   "recycle-bin",
	Short: "List soft-deleted entries",
	Args:  cobra.NoArgs,
	RunE:  executeEntryRecycle,
}

func executeEntryAdd(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	password, err := resolveEntryPassword()
	if err != nil {
		return err
	}

	added, err := session.Entries().Add(vault.Entry{
		Title:    args[0],
		Username: entryUsername,
		Password: password,
		URL:      entryURL,
		Notes:    entryNotes,
		Group:    entryGroup,
		Tags:     entryTags,
		Favorite: entryFavorite,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Entry %s added to group %s\n", shortID(added.ID), added.Group)
	return nil
}

func executeEntryGet(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	e, err := session.Entries().Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", e.ID)
	fmt.Printf("Title:    %s\n", e.Title)
	if e.Username != "" {
		fmt.Printf("Username: %s\n", e.Username)
	}
	if entryShowPass {
		fmt.Printf("Password: %s\n", e.Password)
	} else {
		fmt.Printf("Password: ******** (%s)\n", security.CheckStrength(e.Password))
	}
	if e.URL != "" {
		fmt.Printf("URL:      %s\n", e.URL)
	}
	fmt.Printf("Group:    %s\n", e.Group)
	if len(e.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(e.Tags, ", "))
	}
	if e.Notes != "" {
		fmt.Printf("Notes:    %s\n", e.Notes)
	}
	fmt.Printf("Updated:  %s\n", e.Updated.Format("2006-01-02 15:04"))
	return nil
}

func executeEntryList(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	var (
		entries []vault.Entry
		err     error
	)
	if entryGroup != "" {
		entries, err = session.Entries().ListByGroup(entryGroup)
	} else {
		entries, err = session.Entries().List()
	}
	if err != nil {
		return err
	}

	printEntryTable(entries)
	return nil
}

func executeEntrySearch(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	entries, err := session.Entries().Find(vault.FindFilter{
		Query: args[0],
		Group: searchGroup,
		Tags:  searchTags,
	})
	if err != nil {
		return err
	}

	printEntryTable(entries)
	return nil
}

func executeEntryUpdate(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	current, err := session.Entries().Get(args[0])
	if err != nil {
		return err
	}

	// Only flags the user actually set overwrite the stored state.
	flags := cmd.Flags()
	if flags.Changed("username") {
		current.Username = entryUsername
	}
	if flags.Changed("password") {
		current.Password = entryPassword
	}
	if entryGenerate {
		current.Password, err = security.GeneratePassword(security.DefaultGeneratedLength, security.GenerateOptions{})
		if err != nil {
			return err
		}
	}
	if flags.Changed("url") {
		current.URL = entryURL
	}
	if flags.Changed("notes") {
		current.Notes = entryNotes
	}
	if flags.Changed("group") {
		current.Group = entryGroup
	}
	if flags.Changed("tag") {
		current.Tags = entryTags
	}
	if flags.Changed("favorite") {
		current.Favorite = entryFavorite
	}

	updated, err := session.Entries().Update(args[0], current)
	if err != nil {
		return err
	}

	fmt.Printf("Entry %s updated\n", shortID(updated.ID))
	return nil
}

func executeEntryDelete(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	if err := session.Entries().Delete(args[0], entryPermanent); err != nil {
		return err
	}
	if entryPermanent {
		fmt.Println("Entry permanently deleted")
	} else {
		fmt.Printf("Entry moved to %s\n", cfg.Groups.RecycleBin)
	}
	return nil
}

func executeEntryRestore(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	restored, err := session.Entries().Restore(args[0], entryGroup)
	if err != nil {
		return err
	}
	fmt.Printf("Entry restored to group %s\n", restored.Group)
	return nil
}

func executeEntryMove(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	if err := session.Entries().Move(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Entry moved to %s\n", args[1])
	return nil
}

func executeEntryRecycle(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	entries, err := session.Entries().ListRecycleBin()
	if err != nil {
		return err
	}
	printEntryTable(entries)
	return nil
}

func resolveEntryPassword() (string, error) {
	if entryGenerate {
		return security.GeneratePassword(security.DefaultGeneratedLength, security.GenerateOptions{})
	}
	if entryPassword != "" {
		return entryPassword, nil
	}
	return promptPassword("Entry password")
}

func printEntryTable(entries []vault.Entry) {
	sortEntriesByFlag(entries)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUSERNAME\tGROUP\tTAGS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(e.ID), e.Title, e.Username, e.Group, strings.Join(e.Tags, ","))
	}
	_ = w.Flush()

	if len(entries) == 0 {
		fmt.Println("No entries")
	}
}

func sortEntriesByFlag(entries []vault.Entry) {
	field := vault.SortField(entrySortBy)
	switch field {
	case vault.SortByName, vault.SortByCreated, vault.SortByUpdated:
	default:
		field = vault.SortByName
	}
	vault.SortEntries(entries, field, entrySortDesc)
}
