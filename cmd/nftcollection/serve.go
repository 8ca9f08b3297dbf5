package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-nftcollection/internal/api"
)

func serveCommand() *cobra.Command {
	var sandboxed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			n, codes, err := openNetwork(ctx, cfg.Network, sandboxed, logger)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			notifier, err := newNotifier(cfg, logger)
			if err != nil {
				return err
			}

			svc := newService(n, codes, store, notifier, cfg.Network, logger)
			backends := map[string]api.Pinger{"ledger": store}
			if n.ready != nil {
				backends["lite_server"] = api.PingerFunc(n.ready)
			}

			handler := api.NewServer(logger, svc, n.sender, notifier.Registry(), backends)
			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting HTTP server", "port", cfg.Port, "network", cfg.Name, "sandbox", sandboxed)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-sigCh:
			case err := <-errCh:
				if err != nil {
					logger.Error("HTTP server error", "error", err)
					notifier.Close()
					return err
				}
			}
			logger.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown error", "error", err)
			}
			// Webhooks from the last requests get what is left of the timeout.
			if err := notifier.Shutdown(shutdownCtx); err != nil {
				logger.Warn("webhook deliveries canceled", "error", err)
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&sandboxed, "sandbox", false, "serve an in-process ledger with a funded service wallet")
	return cmd
}
