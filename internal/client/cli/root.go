package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// JSON reports whether machine readable output was requested
func (o *RootOptions) JSON() bool {
	return o.Format == "json"
}

// run opens the App, calls fn and releases everything afterwards
func (o *RootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	if o.open == nil {
		return errors.New("no application opener configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, closeApp, err := o.open(ctx, o)
	if err != nil {
		return err
	}
	defer closeApp()

	return fn(ctx, app)
}

// NewRootCommand creates the root command of the operator CLI.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "shopkeeper",
		Short: "Shopkeeper - store catalog, orders and courier operations",
		Long: `Shopkeeper keeps the local cache, the realtime backup store and the
remote catalog of a shop in sync and runs the order fulfillment pipeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./shopkeeper.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))
	cmd.AddCommand(NewCourierCommand(opts))
	cmd.AddCommand(NewCollectionsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}
