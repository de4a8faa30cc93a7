package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmatsushita/taslite/internal/db"
)

// NewOpenCommand creates the open command, which opens an existing
// database and prints its persisted schema back as JSON.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	var readOnly bool
	cmd := &cobra.Command{
		Use:           "open <db-path>",
		Short:         "open a database and print its persisted schema",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(rootOpts, args[0], readOnly, cmd)
		},
	}
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "mark the handle read-only in its log records (writes are not blocked)")
	return cmd
}

func runOpen(rootOpts *RootOptions, dbPath string, readOnly bool, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)

	formatter.VerboseLog("opening database at %s (read-only=%v)", displayDBPath(dbPath), readOnly)
	database, err := db.Open(context.Background(), dbPath, db.OpenOptions{ReadOnly: readOnly})
	if err != nil {
		return WrapExitError(ExitFailure, "opening database", err)
	}
	defer database.Close()

	blob, err := WriteSchemaJSON(database.Schema())
	if err != nil {
		return WrapExitError(ExitCommandError, "encoding schema", err)
	}
	return formatter.Success(string(blob))
}
