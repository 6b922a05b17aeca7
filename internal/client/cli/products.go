package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/internal/validation"
)

// NewProductsCommand creates the products command group.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
	}

	cmd.AddCommand(newProductsListCommand(rootOpts))
	cmd.AddCommand(newProductsPutCommand(rootOpts))
	cmd.AddCommand(newProductsDeleteCommand(rootOpts))
	cmd.AddCommand(newProductsSyncCommand(rootOpts))

	return cmd
}

type productsListOptions struct {
	*RootOptions
	Local    bool
	Archived bool
}

func newProductsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &productsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products (merged with the remote catalog unless --local)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, app *App) error {
				return runProductsList(ctx, app, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Local, "local", false, "read the local cache only")
	cmd.Flags().BoolVar(&opts.Archived, "archived", false, "include archived products")

	return cmd
}

func runProductsList(ctx context.Context, app *App, opts *productsListOptions) error {
	var (
		records []models.Record
		err     error
	)
	if opts.Local {
		records, err = app.Engine.Snapshot(ctx, models.CollectionProducts)
	} else {
		records, err = app.Engine.ReadCollection(ctx, models.CollectionProducts)
	}
	if err != nil {
		return err
	}

	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		var p models.Product
		if err := rec.Decode(&p); err != nil {
			app.Logger.Warn("Skipping undecodable product", "id", rec.ID, "error", err)
			continue
		}
		if p.Archived && !opts.Archived {
			continue
		}
		products = append(products, p)
	}
	models.SortProducts(products)

	if opts.JSON() {
		return writeJSON(app.IO, products)
	}

	if len(products) == 0 {
		app.IO.Println("No products found.")
		return nil
	}

	tw := newTable(app.IO)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tVARIANTS\tUPDATED")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			p.ID, p.Name, p.Price.StringFixed(2), p.Quantity, len(p.Variants), formatMillis(p.LastUpdated))
	}
	return tw.Flush()
}

type productsPutOptions struct {
	*RootOptions
	File     string
	ID       string
	Name     string
	Category string
	Price    string
	Weight   float64
	Quantity int
	Archived bool
}

func newProductsPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &productsPutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Create or replace a product",
		Long: `Create or replace a product.

The product is read from --file (JSON, "-" for stdin) or built from flags.
A product without id gets a new one.

Example:
  shopkeeper products put --name "Linen shirt" --price 450 --quantity 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, app *App) error {
				p, err := opts.product(cmd)
				if err != nil {
					return err
				}
				return runProductsPut(ctx, app, p)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "product JSON file")
	cmd.Flags().StringVar(&opts.ID, "id", "", "product id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "product name")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category")
	cmd.Flags().StringVar(&opts.Price, "price", "0", "unit price")
	cmd.Flags().Float64Var(&opts.Weight, "weight", 0, "unit weight in kg")
	cmd.Flags().IntVar(&opts.Quantity, "quantity", 0, "stock quantity")
	cmd.Flags().BoolVar(&opts.Archived, "archived", false, "hide from the storefront")

	return cmd
}

func (o *productsPutOptions) product(cmd *cobra.Command) (*models.Product, error) {
	var p models.Product

	if o.File != "" {
		data, err := readInputFile(cmd, o.File)
		if err != nil {
			return nil, err
		}
		var rec models.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("invalid product file: %w", err)
		}
		if err := rec.Decode(&p); err != nil {
			return nil, fmt.Errorf("invalid product file: %w", err)
		}
		return &p, nil
	}

	if o.Name == "" {
		return nil, errors.New("either --file or --name is required")
	}
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid --price: %w", err)
	}

	p = models.Product{
		ID:       o.ID,
		Name:     o.Name,
		Category: o.Category,
		Price:    price,
		Weight:   o.Weight,
		Quantity: o.Quantity,
		Archived: o.Archived,
	}
	return &p, nil
}

func runProductsPut(ctx context.Context, app *App, p *models.Product) error {
	fields, err := validation.New().Struct(p)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		for _, f := range fields {
			app.IO.Printf("invalid: %s\n", f.String())
		}
		return errors.New("product is not valid")
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	rec, err := models.NewRecord(p)
	if err != nil {
		return err
	}

	failures := collectFailures(app.Engine)
	stored, err := app.Engine.WriteRecord(ctx, models.CollectionProducts, rec)
	if err != nil {
		failures.drain(app.Engine)
		return err
	}

	app.IO.Printf("Saved product %s (lastUpdated %d)\n", stored.ID, stored.LastUpdated)

	return reportFailures(app, failures.drain(app.Engine))
}

func newProductsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				failures := collectFailures(app.Engine)
				if err := app.Engine.DeleteRecord(ctx, models.CollectionProducts, args[0]); err != nil {
					failures.drain(app.Engine)
					return err
				}
				app.IO.Printf("Deleted product %s\n", args[0])
				return reportFailures(app, failures.drain(app.Engine))
			})
		},
	}
}

func newProductsSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push every local product to the remote catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				return runProductsSync(ctx, app)
			})
		},
	}
}

func runProductsSync(ctx context.Context, app *App) error {
	if !app.Engine.RemoteEnabled() {
		return errors.New("remote catalog is disabled in the configuration")
	}

	saved, err := app.Engine.SyncCatalog(ctx)

	var partial *shopsync.PartialSyncError
	if errors.As(err, &partial) {
		app.IO.Printf("Pushed %d product(s), %d failed\n", saved, len(partial.Failures))
		for _, f := range partial.Failures {
			app.IO.Printf("warning: %s\n", f.String())
		}
		return warningsError(len(partial.Failures), "catalog partially pushed")
	}
	if err != nil {
		return err
	}

	app.IO.Printf("Pushed %d product(s)\n", saved)
	return nil
}

// readInputFile reads path, "-" meaning the command's stdin
func readInputFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
