package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmatsushita/taslite/internal/db"
	"github.com/jmatsushita/taslite/internal/mapping"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate <source-db-path> <mapping.json> <target-db-path>",
		Short:         "evaluate a mapping against a source database into a fresh target database",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
	return cmd
}

func runMigrate(rootOpts *RootOptions, sourcePath, mappingPath, targetPath string, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)

	mappingData, err := os.ReadFile(mappingPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading mapping file", err)
	}
	m, err := ReadMappingFile(mappingPath, mappingData)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing mapping", err)
	}

	formatter.VerboseLog("opening source database at %s", displayDBPath(sourcePath))
	source, err := db.Open(context.Background(), sourcePath, db.OpenOptions{ReadOnly: true})
	if err != nil {
		return WrapExitError(ExitFailure, "opening source database", err)
	}
	defer source.Close()

	formatter.VerboseLog("evaluating mapping into %s", displayDBPath(targetPath))
	target, err := mapping.Migrate(context.Background(), source, m, targetPath)
	if err != nil {
		return WrapExitError(ExitFailure, "migrate", err)
	}
	defer target.Close()

	return formatter.Success(fmt.Sprintf("migrated %s -> %s", displayDBPath(sourcePath), displayDBPath(targetPath)))
}
