package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmatsushita/taslite/internal/db"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "create <schema.json> <db-path>",
		Short:         "create a database from a JSON-encoded schema",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runCreate(rootOpts *RootOptions, schemaPath, dbPath string, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)

	formatter.VerboseLog("reading schema file %s", schemaPath)
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading schema file", err)
	}
	schema, err := ReadSchemaFile(schemaPath, data)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing schema", err)
	}
	formatter.VerboseLog("schema declares %d classes", schema.Len())

	formatter.VerboseLog("creating database at %s", displayDBPath(dbPath))
	database, err := db.Create(context.Background(), dbPath, schema)
	if err != nil {
		return WrapExitError(ExitFailure, "creating database", err)
	}
	defer database.Close()

	return formatter.Success(fmt.Sprintf("created %s with %d classes", displayDBPath(dbPath), schema.Len()))
}

func displayDBPath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}

func formatterFor(rootOpts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
}
