package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkrasnov/linechat/internal/app"
	"github.com/dkrasnov/linechat/internal/config"
	"github.com/dkrasnov/linechat/internal/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "linechat-server",
		Short: "TCP chat server speaking newline-delimited JSON",
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		RunE: func(_ *cobra.Command, _ []string) error {
			bootstrapLogger := log.New(overrides.LogLevel)

			cfg, path, err := config.Load(bootstrapLogger, configPath)
			if err != nil {
				return err
			}

			// CLI flags win over file and env values. Unset flags stay at
			// their zero value and leave the loaded config untouched.
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting linechat server")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(cfg, logger)
			if err := application.Run(ctx); err != nil {
				return err
			}

			logger.Info().Msg("server exited")
			return nil
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&overrides.Addr, "addr", "p", "", fmt.Sprintf("TCP listen address (default %q)", defaults.Addr))
	cmd.Flags().StringVarP(&overrides.LogLevel, "log-level", "d", "", fmt.Sprintf("log verbosity: debug, info, warn, error; 0/1 accepted (default %q)", defaults.LogLevel))
	cmd.Flags().IntVar(&overrides.MaxSessions, "max-sessions", 0, fmt.Sprintf("maximum concurrent sessions (default %d)", defaults.MaxSessions))
	cmd.Flags().DurationVar(&overrides.IdleTimeout, "idle-timeout", 0, fmt.Sprintf("shut down after this long with no sessions (default %s)", defaults.IdleTimeout))

	return cmd
}
