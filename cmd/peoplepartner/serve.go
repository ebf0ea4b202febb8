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

	"people-partner/internal/app"
)

func serveCmd() *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if addrFlag == "" {
				addrFlag = ":" + cfg.Port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("failed to close session store", "error", err)
				}
			}()

			pruned := a.StartPruner(ctx)

			srv := &http.Server{
				Addr:              addrFlag,
				Handler:           a.Router(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening",
					"addr", srv.Addr,
					"version", cfg.Version,
					"session_store", cfg.Session.Store,
					"model", cfg.Anthropic.Model,
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
			stop()

			logger.Info("shutting down gracefully")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if pruned != nil {
				<-pruned
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (default :$PORT)")
	return cmd
}
