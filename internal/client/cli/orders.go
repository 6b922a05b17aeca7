package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/shopkeeper/internal/client/orders"
	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/internal/models"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Create orders and move them through fulfillment",
	}

	cmd.AddCommand(newOrdersListCommand(rootOpts))
	cmd.AddCommand(newOrdersCreateCommand(rootOpts))
	cmd.AddCommand(newOrdersStatusCommand(rootOpts))
	cmd.AddCommand(newOrdersDeleteCommand(rootOpts))
	cmd.AddCommand(newOrdersReadCommand(rootOpts))

	return cmd
}

type ordersListOptions struct {
	*RootOptions
	Status string
	Unread bool
}

func newOrdersListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ordersListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, app *App) error {
				return runOrdersList(ctx, app, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "only orders with this status")
	cmd.Flags().BoolVar(&opts.Unread, "unread", false, "only orders not yet marked as read")

	return cmd
}

func runOrdersList(ctx context.Context, app *App, opts *ordersListOptions) error {
	if opts.Status != "" && !models.OrderStatus(opts.Status).Valid() {
		return fmt.Errorf("unknown status %q", opts.Status)
	}

	records, err := app.Engine.ReadCollection(ctx, models.CollectionOrders)
	if err != nil {
		return err
	}

	list := make([]models.Order, 0, len(records))
	for _, rec := range records {
		var o models.Order
		if err := rec.Decode(&o); err != nil {
			app.Logger.Warn("Skipping undecodable order", "id", rec.ID, "error", err)
			continue
		}
		if opts.Status != "" && o.Status != models.OrderStatus(opts.Status) {
			continue
		}
		if opts.Unread && o.IsRead {
			continue
		}
		list = append(list, o)
	}
	slices.SortStableFunc(list, func(a, b models.Order) int {
		return b.Date.Compare(a.Date)
	})

	if opts.JSON() {
		return writeJSON(app.IO, list)
	}

	if len(list) == 0 {
		app.IO.Println("No orders found.")
		return nil
	}

	tw := newTable(app.IO)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tCUSTOMER\tITEMS\tTOTAL\tTRACKING\tREAD")
	for _, o := range list {
		tracking := o.TrackingNumber
		if tracking == "" {
			tracking = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%t\n",
			o.ID, o.Date.Format("2006-01-02 15:04"), o.Status, o.Customer.Name,
			o.ItemCount(), o.Total.StringFixed(2), tracking, o.IsRead)
	}
	return tw.Flush()
}

type ordersCreateOptions struct {
	*RootOptions
	File string
}

func newOrdersCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ordersCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Commit a checkout draft as a new Pending order",
		Long: `Commit a checkout draft as a new Pending order.

The draft is a JSON document with customer, items, shippingCost,
paymentMethod and notes. Stock is deducted and the cart is cleared.

Example:
  shopkeeper orders create --file draft.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, app *App) error {
				data, err := readInputFile(cmd, opts.File)
				if err != nil {
					return err
				}
				var draft orders.Draft
				if err := json.Unmarshal(data, &draft); err != nil {
					return fmt.Errorf("invalid draft: %w", err)
				}
				return runOrdersCreate(ctx, app, opts.RootOptions, draft)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "-", `draft JSON file ("-" for stdin)`)

	return cmd
}

func runOrdersCreate(ctx context.Context, app *App, opts *RootOptions, draft orders.Draft) error {
	res, err := app.Orders.CreateOrder(ctx, draft)
	// уведомление уходит в фоне, не даем процессу завершиться раньше
	defer app.Orders.Wait()

	var partial *shopsync.PartialSyncError
	if err != nil && !errors.As(err, &partial) {
		var invalid *orders.ValidationError
		if errors.As(err, &invalid) {
			for _, f := range invalid.Fields {
				app.IO.Printf("invalid: %s\n", f.String())
			}
		}
		return err
	}

	if opts.JSON() {
		if err := writeJSON(app.IO, res); err != nil {
			return err
		}
	} else {
		app.IO.Printf("Created order %s: %d item(s), total %s\n",
			res.Order.ID, res.Order.ItemCount(), res.Order.Total.StringFixed(2))
		for _, w := range res.Warnings {
			app.IO.Printf("warning: %s\n", w.String())
		}
	}

	if len(res.Warnings) > 0 {
		return warningsError(len(res.Warnings), "order saved locally")
	}
	return nil
}

type ordersStatusOptions struct {
	*RootOptions
	Dispatch bool
}

func newOrdersStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ordersStatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Change the status of an order",
		Long: `Change the status of an order.

Allowed: Pending <-> Confirmed -> Shipped -> Delivered, and Archived or
Cancelled from any status except Cancelled. Confirming books a courier,
going back to Pending or Cancelled cancels the booking.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, app *App) error {
				return runOrdersStatus(ctx, app, opts, args[0], parseStatus(args[1]))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Dispatch, "dispatch", true, "run queued courier jobs right away")

	return cmd
}

// parseStatus accepts any letter case: "confirmed" -> Confirmed
func parseStatus(s string) models.OrderStatus {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return models.OrderStatus(strings.ToUpper(s[:1]) + s[1:])
}

func runOrdersStatus(ctx context.Context, app *App, opts *ordersStatusOptions, orderID string, next models.OrderStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown status %q", next)
	}

	res, err := app.Orders.TransitionStatus(ctx, orderID, next)
	if res == nil {
		return err
	}

	var warnings []string
	var partial *shopsync.PartialSyncError
	switch {
	case errors.As(err, &partial):
		for _, f := range partial.Failures {
			warnings = append(warnings, f.String())
		}
	case err != nil:
		return err
	}

	if !res.Changed {
		app.IO.Printf("Order %s is already %s\n", orderID, res.Order.Status)
		return nil
	}
	app.IO.Printf("Order %s is now %s\n", orderID, res.Order.Status)

	if res.Job != nil {
		app.IO.Printf("Courier job queued: %s\n", res.Job.Kind)
		if opts.Dispatch {
			courierWarnings, err := app.Dispatcher.ProcessPending(ctx)
			if err != nil {
				return err
			}
			for _, w := range courierWarnings {
				warnings = append(warnings, w.String())
			}
		}
	}

	for _, w := range warnings {
		app.IO.Printf("warning: %s\n", w)
	}
	if len(warnings) > 0 {
		return warningsError(len(warnings), "status changed")
	}
	return nil
}

func newOrdersDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <order-id>",
		Short: "Delete an order everywhere, cancelling its courier booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				failures := collectFailures(app.Engine)
				if err := app.Orders.DeleteOrder(ctx, args[0]); err != nil {
					failures.drain(app.Engine)
					return err
				}
				app.IO.Printf("Deleted order %s\n", args[0])
				return reportFailures(app, failures.drain(app.Engine))
			})
		},
	}
}

func newOrdersReadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <order-id>",
		Short: "Mark an order as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				failures := collectFailures(app.Engine)
				err := app.Orders.MarkRead(ctx, args[0])
				reported := failures.drain(app.Engine)

				var partial *shopsync.PartialSyncError
				if err != nil && !errors.As(err, &partial) {
					return err
				}
				app.IO.Printf("Order %s marked as read\n", args[0])
				return reportFailures(app, reported)
			})
		},
	}
}
