package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmatsushita/taslite/internal/db"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <db-path> <class> <id>",
		Short:         "fetch one element by id",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
	return cmd
}

func runGet(rootOpts *RootOptions, dbPath, class, idArg string, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)
	id, err := strconv.ParseUint(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing id", err)
	}

	formatter.VerboseLog("opening database at %s", displayDBPath(dbPath))
	database, err := db.Open(context.Background(), dbPath, db.OpenOptions{})
	if err != nil {
		return WrapExitError(ExitFailure, "opening database", err)
	}
	defer database.Close()

	formatter.VerboseLog("fetching %s[%d]", class, id)
	value, err := database.Get(context.Background(), class, id)
	if err != nil {
		return WrapExitError(ExitFailure, "get", err)
	}

	blob, err := WriteValueJSON(value)
	if err != nil {
		return WrapExitError(ExitCommandError, "encoding value", err)
	}
	return formatter.Success(string(blob))
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "set <db-path> <class> <id> <value.json>",
		Short:         "write (insert or overwrite) one element by id",
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(rootOpts, args[0], args[1], args[2], args[3], cmd)
		},
	}
	return cmd
}

func runSet(rootOpts *RootOptions, dbPath, class, idArg, valuePath string, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)
	id, err := strconv.ParseUint(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing id", err)
	}
	data, err := os.ReadFile(valuePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading value file", err)
	}
	value, err := ReadValueFile(valuePath, data)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing value", err)
	}

	formatter.VerboseLog("opening database at %s", displayDBPath(dbPath))
	database, err := db.Open(context.Background(), dbPath, db.OpenOptions{})
	if err != nil {
		return WrapExitError(ExitFailure, "opening database", err)
	}
	defer database.Close()

	formatter.VerboseLog("writing %s[%d]", class, id)
	if err := database.Set(context.Background(), class, id, value); err != nil {
		return WrapExitError(ExitFailure, "set", err)
	}
	return formatter.Success("ok")
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "push <db-path> <class> <value.json>",
		Short:         "insert an element, letting the class assign its id",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
	return cmd
}

func runPush(rootOpts *RootOptions, dbPath, class, valuePath string, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)
	data, err := os.ReadFile(valuePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading value file", err)
	}
	value, err := ReadValueFile(valuePath, data)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing value", err)
	}

	formatter.VerboseLog("opening database at %s", displayDBPath(dbPath))
	database, err := db.Open(context.Background(), dbPath, db.OpenOptions{})
	if err != nil {
		return WrapExitError(ExitFailure, "opening database", err)
	}
	defer database.Close()

	formatter.VerboseLog("pushing into %s", class)
	id, err := database.Push(context.Background(), class, value)
	if err != nil {
		return WrapExitError(ExitFailure, "push", err)
	}
	return formatter.Success(strconv.FormatUint(id, 10))
}
