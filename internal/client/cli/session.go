package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/shopkeeper/internal/client/auth"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Username string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the remote catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, app *App) error {
				return runLogin(ctx, app, opts.Username)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "admin username (prompted if empty)")

	return cmd
}

func runLogin(ctx context.Context, app *App, username string) error {
	if app.Auth == nil {
		return errors.New("remote catalog is disabled in the configuration")
	}

	var err error
	if username == "" {
		username, err = app.IO.ReadInput("Username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}

	password, err := app.IO.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	session, err := app.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	app.IO.Printf("Logged in as %s at %s\n", session.Username, session.CatalogURL)
	if session.ExpiresAt > 0 {
		app.IO.Printf("Token expires: %s\n", time.Unix(session.ExpiresAt, 0).Format(time.RFC3339))
	}
	return nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored catalog session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				if app.Auth == nil {
					return errors.New("remote catalog is disabled in the configuration")
				}
				if err := app.Auth.Logout(ctx); err != nil {
					return err
				}
				app.IO.Println("Logged out")
				return nil
			})
		},
	}
}

// Status is the output of the status command
type Status struct {
	Session         string `json:"session"`
	Username        string `json:"username,omitempty"`
	Remote          string `json:"remote"`
	Backup          string `json:"backup"`
	LastCatalogRead string `json:"lastCatalogRead"`
	RemoteProducts  int    `json:"remoteProducts,omitempty"`
	PendingJobs     int    `json:"pendingCourierJobs"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, store and outbox status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, app *App) error {
				st, err := collectStatus(ctx, app)
				if err != nil {
					return err
				}
				if rootOpts.JSON() {
					return writeJSON(app.IO, st)
				}
				printStatus(app, st)
				return nil
			})
		},
	}
}

func collectStatus(ctx context.Context, app *App) (*Status, error) {
	st := &Status{
		Session: "disabled",
		Remote:  "disabled",
		Backup:  "disabled",
	}

	if app.Auth != nil {
		st.Session = sessionState(ctx, app.Auth, st)
	}

	if app.Catalog != nil {
		health, err := app.Catalog.Health(ctx)
		if err != nil {
			st.Remote = "unavailable: " + err.Error()
		} else {
			st.Remote = health.Status
			st.RemoteProducts = health.Products
		}
	}

	if app.Subscriptions != nil {
		st.Backup = "configured"
	}

	jobs, err := app.Outbox.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read courier outbox: %w", err)
	}
	st.PendingJobs = len(jobs)

	st.LastCatalogRead = "never"
	if app.Meta != nil {
		ts, err := app.Meta.GetLastSyncTimestamp(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read last sync time: %w", err)
		}
		if ts > 0 {
			st.LastCatalogRead = formatMillis(ts)
		}
	}

	return st, nil
}

func sessionState(ctx context.Context, svc *auth.Service, st *Status) string {
	session, err := svc.Session(ctx)
	if err != nil {
		return "not authenticated"
	}
	st.Username = session.Username

	if _, err := svc.Token(ctx); errors.Is(err, auth.ErrSessionExpired) {
		return "expired"
	}
	return "authenticated"
}

func printStatus(app *App, st *Status) {
	app.IO.Printf("Session:           %s\n", st.Session)
	if st.Username != "" {
		app.IO.Printf("Username:          %s\n", st.Username)
	}
	app.IO.Printf("Remote catalog:    %s\n", st.Remote)
	if st.RemoteProducts > 0 {
		app.IO.Printf("Remote products:   %d\n", st.RemoteProducts)
	}
	app.IO.Printf("Backup store:      %s\n", st.Backup)
	app.IO.Printf("Last catalog read: %s\n", st.LastCatalogRead)
	app.IO.Printf("Courier jobs:      %d\n", st.PendingJobs)
}
