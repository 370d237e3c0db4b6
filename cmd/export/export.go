package export

import (
	"fmt"

	"github.com/a2cps/phantomdb-go/internal/conf"
	"github.com/a2cps/phantomdb-go/internal/datastore"
	"github.com/a2cps/phantomdb-go/internal/logging"
	"github.com/a2cps/phantomdb-go/internal/report"
	"github.com/spf13/cobra"
)

// Command creates the export command, which dumps a table or view from the
// database to a delimited file. Mainly for testing.
func Command(settings *conf.Settings) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export [table]",
		Short: "Export a table or view as TSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := datastore.StatusViewName
			if len(args) > 0 {
				table = args[0]
			}
			return runExport(settings, table, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "phantom-log.tsv", "TSV file to write")

	return cmd
}

func runExport(settings *conf.Settings, table, out string) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no output database is enabled")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	columns, records, err := store.ReadTable(table)
	if err != nil {
		return err
	}
	if err := report.WriteTSVFile(out, columns, records); err != nil {
		return err
	}

	logging.Info("Exported table", "table", table, "rows", len(records), "out", out)
	return nil
}
