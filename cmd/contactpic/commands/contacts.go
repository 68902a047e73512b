package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/internal/cli/output"
	"github.com/marmos91/contactpic/internal/cli/prompt"
	"github.com/marmos91/contactpic/pkg/directory"
)

var (
	contactsOutput string
	contactName    string
	contactPhoto   string
	contactForce   bool
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage the contact directory",
	Long: `List and edit contacts in the configured directory.

The static YAML directory is read-only from here; edit the file instead.
SQLite, PostgreSQL and badger directories support add and delete.`,
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts",
	Args:  cobra.NoArgs,
	RunE:  runContactsList,
}

var contactsAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Add or update a contact",
	Long: `Add a contact, or update it when the address already exists.

Examples:
  contactpic contacts add alice@example.com --name "Alice Example" --photo photos/alice.png`,
	Args: cobra.ExactArgs(1),
	RunE: runContactsAdd,
}

var contactsDeleteCmd = &cobra.Command{
	Use:     "delete <address>",
	Aliases: []string{"rm"},
	Short:   "Delete a contact",
	Args:    cobra.ExactArgs(1),
	RunE:    runContactsDelete,
}

func init() {
	contactsListCmd.Flags().StringVarP(&contactsOutput, "output", "o", "table", "Output format (table|json|yaml)")
	contactsAddCmd.Flags().StringVar(&contactName, "name", "", "Display name")
	contactsAddCmd.Flags().StringVar(&contactPhoto, "photo", "", "Photo locator (file path)")
	contactsDeleteCmd.Flags().BoolVarP(&contactForce, "force", "f", false, "Skip confirmation")

	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsAddCmd)
	contactsCmd.AddCommand(contactsDeleteCmd)
}

// contactList renders contacts as a table.
type contactList []directory.Contact

func (l contactList) Headers() []string { return []string{"Address", "Name", "Photo"} }

func (l contactList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		photo := c.Photo
		if photo == "" {
			photo = "-"
		}
		rows = append(rows, []string{c.Address, c.DisplayName, photo})
	}
	return rows
}

func openDirectory() (*directory.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return directory.Open(cfg.Directory)
}

func runContactsList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(contactsOutput)
	if err != nil {
		return err
	}

	store, err := openDirectory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	contacts, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	return output.NewPrinter(cmd.OutOrStdout(), format, !noColor).Print(contactList(contacts))
}

func runContactsAdd(cmd *cobra.Command, args []string) error {
	store, err := openDirectory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	c := directory.Contact{Address: args[0], DisplayName: contactName, Photo: contactPhoto}
	if c.Photo == "" {
		output.NewPrinter(cmd.ErrOrStderr(), output.FormatTable, !noColor).
			Warning("no --photo given; the contact will get a placeholder")
	}

	if err := store.Put(cmd.Context(), c); err != nil {
		return err
	}

	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, !noColor).
		Success(fmt.Sprintf("Contact %s saved", directory.NormalizeAddress(c.Address)))
	return nil
}

func runContactsDelete(cmd *cobra.Command, args []string) error {
	address := directory.NormalizeAddress(args[0])
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete contact %s", address), contactForce)
	if err != nil {
		return err
	}
	if !ok {
		output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, !noColor).Warning("Aborted")
		return nil
	}

	store, err := openDirectory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, !noColor).
		Success(fmt.Sprintf("Contact %s deleted", address))
	return nil
}
