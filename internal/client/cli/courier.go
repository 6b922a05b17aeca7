package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/shopkeeper/internal/models"
)

// NewCourierCommand creates the courier command group.
func NewCourierCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courier",
		Short: "Inspect and run the courier job outbox",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "jobs",
		Short: "List queued courier jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				return runCourierJobs(ctx, app, rootOpts)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "process",
		Short: "Run every due courier job once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				return runCourierProcess(ctx, app)
			})
		},
	})

	return cmd
}

func runCourierJobs(ctx context.Context, app *App, opts *RootOptions) error {
	jobs, err := app.Outbox.ListJobs(ctx)
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []*models.CourierJob{}
	}

	if opts.JSON() {
		return writeJSON(app.IO, jobs)
	}

	if len(jobs) == 0 {
		app.IO.Println("No courier jobs queued.")
		return nil
	}

	tw := newTable(app.IO)
	fmt.Fprintln(tw, "ID\tORDER\tKIND\tATTEMPTS\tNEXT ATTEMPT\tLAST ERROR")
	for _, j := range jobs {
		lastErr := j.LastError
		if lastErr == "" {
			lastErr = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID, j.OrderID, j.Kind, j.Attempts, formatMillis(j.NextAttemptAt), lastErr)
	}
	return tw.Flush()
}

func runCourierProcess(ctx context.Context, app *App) error {
	warnings, err := app.Dispatcher.ProcessPending(ctx)
	if err != nil {
		return err
	}

	left, err := app.Outbox.ListJobs(ctx)
	if err != nil {
		return err
	}

	for _, w := range warnings {
		app.IO.Printf("warning: %s\n", w.String())
	}
	app.IO.Printf("Courier jobs left in the outbox: %d\n", len(left))

	if len(warnings) > 0 {
		return warningsError(len(warnings), "courier follow-up needed")
	}
	return nil
}
