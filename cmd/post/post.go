package post

import (
	"fmt"

	"github.com/a2cps/phantomdb-go/internal/conf"
	"github.com/a2cps/phantomdb-go/internal/confluence"
	"github.com/a2cps/phantomdb-go/internal/datastore"
	"github.com/a2cps/phantomdb-go/internal/logging"
	"github.com/a2cps/phantomdb-go/internal/report"
	"github.com/spf13/cobra"
)

// Command creates the post command, which reconciles the computed status
// view with the published table and optionally publishes and/or writes the
// merged result.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		out     string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Reconcile the status view with the published log",
		Long:  `Merge the freshly computed status view with the notes of the published wiki table, then publish the result and/or write it to a TSV file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd, settings, out, publish)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "TSV file to write the merged log to")
	cmd.Flags().BoolVar(&publish, "post", false, "Whether to upload to Confluence")

	return cmd
}

func runPost(cmd *cobra.Command, settings *conf.Settings, out string, publish bool) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no output database is enabled")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	fresh, err := store.StatusLog()
	if err != nil {
		return err
	}

	log, err := confluence.NewLog(cmd.Context(), &settings.Confluence)
	if err != nil {
		return err
	}

	merged, dropped := report.Merge(fresh, log.Notes())
	if len(dropped) > 0 {
		// deliberate cleanup of scans gone from the computed view, but
		// worth surfacing since the note text disappears with the row
		logging.Warn("Dropping published rows with no matching scan",
			"count", len(dropped), "ids", dropped)
	}

	if publish {
		if err := log.Publish(cmd.Context(), merged); err != nil {
			return err
		}
		logging.Info("Published merged log", "rows", len(merged), "page_id", settings.Confluence.PageID)
	}
	if out != "" {
		if err := report.WriteTSVFile(out, report.Columns, report.Records(merged)); err != nil {
			return err
		}
		logging.Info("Wrote merged log", "rows", len(merged), "out", out)
	}

	return nil
}
