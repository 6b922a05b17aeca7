package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/shopkeeper/internal/bus"
	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
)

// watchedTopics are printed by the watch command
var watchedTopics = []bus.Topic{
	bus.CatalogChanged,
	bus.OrdersChanged,
	bus.SettingsChanged,
	bus.CollectionChanged,
	bus.SyncFailed,
	bus.CourierBookingRequested,
}

type watchOptions struct {
	*RootOptions
	MetricsAddr string
}

// NewWatchCommand creates the watch command: it keeps the backup subscriptions
// and the courier dispatcher running and prints every change until interrupted.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &watchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow backup store changes and run the courier dispatcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, app *App) error {
				return runWatch(ctx, app, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

// eventPrinter serializes output of bus handlers running on different goroutines
type eventPrinter struct {
	app  *App
	now  func() time.Time
	json bool
	mu   sync.Mutex
}

type eventLine struct {
	Time       time.Time  `json:"time"`
	Payload    any        `json:"payload,omitempty"`
	Topic      bus.Topic  `json:"topic"`
	Collection string     `json:"collection,omitempty"`
	Source     bus.Source `json:"source"`
}

func (p *eventPrinter) handle(_ context.Context, ev bus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := eventLine{Time: p.now(), Topic: ev.Topic, Collection: ev.Collection, Source: ev.Source}
	switch payload := ev.Payload.(type) {
	case shopsync.SyncFailure:
		line.Payload = payload.String()
	case nil:
	default:
		line.Payload = payload
	}

	if p.json {
		if err := writeJSON(p.app.IO, line); err != nil {
			p.app.Logger.Warn("Failed to print event", "error", err)
		}
		return
	}

	text := fmt.Sprintf("%s %-24s %-16s %s", line.Time.Format(time.TimeOnly), ev.Topic, ev.Collection, ev.Source)
	if s, ok := line.Payload.(string); ok {
		text += " " + s
	}
	p.app.IO.Println(text)
}

func runWatch(ctx context.Context, app *App, opts *watchOptions) error {
	printer := &eventPrinter{app: app, now: time.Now, json: opts.JSON()}
	for _, topic := range watchedTopics {
		sub := app.Engine.Bus().Subscribe(topic, printer.handle)
		defer sub.Unsubscribe()
	}

	if app.Subscriptions != nil {
		if err := app.Subscriptions.Start(ctx); err != nil {
			return fmt.Errorf("failed to subscribe to the backup store: %w", err)
		}
		defer func() {
			if err := app.Subscriptions.Stop(); err != nil {
				app.Logger.Warn("Failed to close backup subscriptions", "error", err)
			}
		}()
		app.IO.Printf("Following %d backup collection(s)\n", app.Subscriptions.Active())
	} else {
		app.IO.Println("Backup store is not configured, only local changes are shown")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Dispatcher.Run(gctx)
	})

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			app.Logger.Info("Serving metrics", "addr", opts.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	app.Engine.Wait()
	app.Orders.Wait()

	return err
}
