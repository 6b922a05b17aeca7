package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/iudanet/shopkeeper/internal/config"
	"github.com/iudanet/shopkeeper/internal/logging"
	"github.com/iudanet/shopkeeper/internal/server"
	"github.com/iudanet/shopkeeper/internal/server/handlers"
	"github.com/iudanet/shopkeeper/internal/server/storage/sqlite"
	"github.com/iudanet/shopkeeper/internal/validation"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "shopkeeper-server",
		Short:         "Remote catalog server for shopkeeper clients",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to shopkeeper.yaml")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	hash := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for server.admin_password_hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHashPassword(cmd)
		},
	}

	root.AddCommand(serve, hash)
	return root
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	if !cfg.Server.AuthEnabled {
		logger.Warn("catalog writes are not authenticated (server.auth_enabled=false)")
	}

	srv, err := server.New(server.Options{
		Addr:        cfg.Server.Addr,
		AuthEnabled: cfg.Server.AuthEnabled,
		RateLimit:   cfg.Server.RateLimit,
		Admin: handlers.AdminCredentials{
			Username:     cfg.Server.AdminUser,
			PasswordHash: cfg.Server.AdminPasswordHash,
		},
		JWT: handlers.JWTConfig{
			Secret:         []byte(cfg.Server.JWTSecret),
			AccessTokenTTL: cfg.Server.TokenTTL,
		},
	}, store, logger)
	if err != nil {
		return err
	}

	info, err := store.Info(ctx)
	if err != nil {
		return err
	}

	logger.Info("starting catalog server",
		slog.String("version", Version),
		slog.String("db", info.Path),
		slog.Int64("schema_version", info.SchemaVersion),
		slog.Int("products", info.Products))

	return srv.Run(ctx)
}

// runHashPassword читает пароль с терминала без эха или из stdin, если он не терминал
func runHashPassword(cmd *cobra.Command) error {
	var password string

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}
