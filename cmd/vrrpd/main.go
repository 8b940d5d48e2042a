// vrrpd is the HTTP front-end: it accepts the group description over
// /vrrp, stores it at the config path, and drives the reconciliation
// engine.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yvivekan79/vrrp/internal/api"
	"github.com/yvivekan79/vrrp/internal/config"
	"github.com/yvivekan79/vrrp/internal/engine"
	"github.com/yvivekan79/vrrp/internal/logging"
)

const envFile = "/etc/vrrp/vrrp.env"

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("daemon failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var debug bool
	var listen string
	var configPath string

	cmd := &cobra.Command{
		Use:           "vrrpd",
		Short:         "HTTP front-end for the VRRP gateway engine",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(slog.LevelInfo, debug)
			if _, err := os.Stat(envFile); err == nil {
				if err := godotenv.Load(envFile); err != nil {
					slog.Warn("could not load env file", "path", envFile, "err", err)
				}
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, listen, configPath)
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&listen, "listen", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "Group config path")
	return cmd
}

func run(ctx context.Context, listen, configPath string) error {
	server := &api.Server{
		ConfigPath: configPath,
		Engine:     engine.New(configPath),
	}
	httpServer := &http.Server{
		Addr:    listen,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", listen, "config", configPath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("shut down")
	return nil
}
