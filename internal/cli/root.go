// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package cli provides the command-line interface of sqlcraft.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/sqlcraft/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

type profileKey struct{}

type loggerKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sqlcraft",
		Short: "Render and run SQL statement documents",
		Long: `sqlcraft renders YAML statement documents into SQL text for a chosen
dialect, and can run the rendered statements against a database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			profile, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			level, err := profile.Level()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			logger.Debug("loaded profile",
				slog.String("driver", profile.Driver),
				slog.String("dialect", profile.Dialect),
			)

			ctx := context.WithValue(cmd.Context(), profileKey{}, profile)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	config.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newDialectsCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getProfile(ctx context.Context) *config.Profile {
	if p, ok := ctx.Value(profileKey{}).(*config.Profile); ok {
		return p
	}
	return &config.Profile{Driver: config.DefaultDriver, DSN: config.DefaultDSN, LogLevel: config.DefaultLogLevel}
}

func getLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
