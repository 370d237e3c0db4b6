package initdb

import (
	"fmt"

	"github.com/a2cps/phantomdb-go/internal/conf"
	"github.com/a2cps/phantomdb-go/internal/datastore"
	"github.com/a2cps/phantomdb-go/internal/ingest"
	"github.com/a2cps/phantomdb-go/internal/logging"
	"github.com/spf13/cobra"
)

// Command creates the init command, which runs one ingestion pass against
// the products tree and writes the database.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Ingest the products tree into the database",
		Long:  `Walk the MRI products tree, derive scan and derivative records and write them to the database in a single transaction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(settings)
		},
	}

	return cmd
}

func runInit(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no output database is enabled")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	batch, err := ingest.Run(settings.Products, store)
	if err != nil {
		return err
	}

	logging.Info("Ingestion pass complete",
		"products", settings.Products,
		"scans", len(batch.Scans),
		"conversions", len(batch.Conversions),
		"derivatives", len(batch.Anatomicals)+len(batch.Functionals)+len(batch.Diffusions),
		"qa_slices", len(batch.Slices))
	return nil
}
