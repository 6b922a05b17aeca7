package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/internal/models"
)

// NewCollectionsCommand creates the collections command group. It works with
// the raw records of any registered collection (settings, coupons, staff...).
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Read and replace raw collections",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tAUTHORITY\tSINGLETON\tLOCAL ONLY")
			for _, c := range models.Collections() {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", c.Name, c.Authority, c.Singleton, c.LocalOnly)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print a collection as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				return runCollectionGet(ctx, app, args[0])
			})
		},
	})

	var file string
	put := &cobra.Command{
		Use:   "put <name>",
		Short: "Replace every record of a collection",
		Long: `Replace every record of a collection.

The file holds a JSON array of records, a keyed object, or a single object
for singleton collections such as site_settings. The collection is written
locally and pushed to the backup store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				data, err := readInputFile(cmd, file)
				if err != nil {
					return err
				}
				return runCollectionPut(ctx, app, args[0], data)
			})
		},
	}
	put.Flags().StringVarP(&file, "file", "f", "-", `collection JSON file ("-" for stdin)`)
	cmd.AddCommand(put)

	return cmd
}

func runCollectionGet(ctx context.Context, app *App, name string) error {
	col, err := models.Lookup(name)
	if err != nil {
		return err
	}

	records, err := app.Engine.ReadCollection(ctx, name)
	if err != nil {
		return err
	}

	raw, err := models.EncodeSnapshot(col, records)
	if err != nil {
		return err
	}
	if col.Singleton {
		return writeJSON(app.IO, raw)
	}
	if records == nil {
		records = []models.Record{}
	}
	return writeJSON(app.IO, records)
}

func runCollectionPut(ctx context.Context, app *App, name string, data []byte) error {
	col, err := models.Lookup(name)
	if err != nil {
		return err
	}
	if col.IsCatalog() {
		return errors.New("use 'shopkeeper products put' for catalog records")
	}

	records, err := models.DecodeSnapshot(col, data)
	if err != nil {
		return err
	}

	res, err := app.Engine.Mutate(ctx, name, func(b *shopsync.Batch) error {
		keep := make(map[string]bool, len(records))
		for _, rec := range records {
			if rec.ID == "" {
				return shopsync.ErrMissingID
			}
			keep[rec.ID] = true
			b.Put(rec)
		}
		var stale []string
		for _, existing := range b.Records() {
			if !keep[existing.ID] {
				stale = append(stale, existing.ID)
			}
		}
		for _, id := range stale {
			b.Delete(id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	app.IO.Printf("%s: %d record(s) written, %d removed\n", name, len(res.Changed), len(res.Deleted))

	if err := app.Engine.PushCollection(ctx, name); err != nil {
		f := shopsync.SyncFailure{Collection: name, Store: shopsync.StoreBackup, Err: err}
		app.Engine.ReportFailures(ctx, &shopsync.PartialSyncError{Failures: []shopsync.SyncFailure{f}})
		return reportFailures(app, []shopsync.SyncFailure{f})
	}
	return nil
}
