package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"slowlooking/internal/api"
)

// statsWindow is the trailing period covered by ledger counts in /api/stats.
const statsWindow = 30 * 24 * time.Hour

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journey library over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Address
			}

			lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}

			var (
				ledger   api.StatusCounter
				attempts *api.AttemptHandler
			)
			if st, err := ctx.openStore(cmd.Context()); err != nil {
				slog.Warn("Generation ledger unavailable", "error", err)
			} else {
				ledger = st
				attempts = api.NewAttemptHandler(st)
			}

			srv := api.NewServer(addr,
				api.NewJourneyHandler(lib),
				api.NewStatsHandler(lib, ctx.tracker, ledger, statsWindow),
				attempts,
			)
			return serveUntilDone(cmd.Context(), srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func serveUntilDone(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting web server", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
