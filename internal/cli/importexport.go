package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmatsushita/taslite/internal/db"
	"github.com/jmatsushita/taslite/internal/wire"
)

// fileSource reads wire.DefaultChunkSize chunks from an *os.File, adapting
// it to wire.Source.
type fileSource struct {
	r *bufio.Reader
}

func (s *fileSource) NextChunk() ([]byte, error) {
	buf := make([]byte, wire.DefaultChunkSize)
	n, err := s.r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// fileSink writes chunks to an *os.File, adapting it to wire.Sink.
type fileSink struct {
	w io.Writer
}

func (s *fileSink) WriteChunk(c []byte) error {
	_, err := s.w.Write(c)
	return err
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "import <schema.json> <db-path> <instance-file>",
		Short:         "create a database and import a streamed instance into it",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
	return cmd
}

func runImport(rootOpts *RootOptions, schemaPath, dbPath, instancePath string, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading schema file", err)
	}
	schema, err := ReadSchemaFile(schemaPath, schemaData)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing schema", err)
	}

	f, err := os.Open(instancePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening instance file", err)
	}
	defer f.Close()

	formatter.VerboseLog("importing %s into %s", instancePath, displayDBPath(dbPath))
	database, err := db.Import(context.Background(), dbPath, schema, &fileSource{r: bufio.NewReader(f)})
	if err != nil {
		return WrapExitError(ExitFailure, "import", err)
	}
	defer database.Close()

	return formatter.Success(fmt.Sprintf("imported into %s", displayDBPath(dbPath)))
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var chunkSize int
	cmd := &cobra.Command{
		Use:           "export <db-path> <instance-file>",
		Short:         "export every class as a single streamed instance",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], args[1], chunkSize, cmd)
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "chunk size in bytes (0 uses the default)")
	return cmd
}

func runExport(rootOpts *RootOptions, dbPath, instancePath string, chunkSize int, cmd *cobra.Command) error {
	formatter := formatterFor(rootOpts, cmd)

	database, err := db.Open(context.Background(), dbPath, db.OpenOptions{ReadOnly: true})
	if err != nil {
		return WrapExitError(ExitFailure, "opening database", err)
	}
	defer database.Close()

	f, err := os.Create(instancePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "creating instance file", err)
	}
	defer f.Close()

	formatter.VerboseLog("exporting %s to %s", displayDBPath(dbPath), instancePath)
	if err := database.Export(context.Background(), &fileSink{w: f}, db.ExportOptions{ChunkSize: chunkSize}); err != nil {
		return WrapExitError(ExitFailure, "export", err)
	}
	return formatter.Success(fmt.Sprintf("exported %s", displayDBPath(dbPath)))
}
