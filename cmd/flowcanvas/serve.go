package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/flowcanvas/internal/api"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor HTTP server",
	Long: `Starts the editor with an empty integration and exposes it over a JSON API,
a Prometheus /metrics endpoint and an SSE /events stream. SIGHUP re-reads the
configuration: the log level and views file apply live, other changes need a
restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, level, err := setup(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if err := a.start(ctx); err != nil {
			_ = a.close()
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				logger.Warn("close", "error", err)
			}
		}()

		deps := api.Deps{
			Editor:    a.editor,
			Validator: a.validator,
			Source:    a.source,
			Catalog:   a.catalog,
			Drafts:    a.drafts,
			Hub:       a.hub,
			Metrics:   a.metrics,
			Logger:    logger,
		}
		if a.backend != nil {
			deps.Deployments = a.backend
		}

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           api.NewServer(deps).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("flowcanvas listening",
				"addr", srv.Addr,
				"store", cfg.Store,
				"layout", a.editor.EngineName(),
				"version", version)
			serverErrors <- srv.ListenAndServe()
		}()

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(signals)

		for {
			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case sig := <-signals:
				if sig == syscall.SIGHUP {
					next, err := reloadConfig(cmd)
					if err != nil {
						logger.Warn("config reload failed", "error", err)
						continue
					}
					a.reload(next, level)
					continue
				}

				logger.Info("shutting down", "signal", sig.String())
				// SSE handlers return once their channels close.
				a.hub.Close()
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancelShutdown()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
					return srv.Close()
				}
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (default :4200)")
	serveCmd.Flags().String("backend", "", "Backend base URL for catalog, source, views and deployments")
	serveCmd.Flags().String("store", "", "Draft store: memory, libsql or redis")
	serveCmd.Flags().String("db", "", "libSQL database path")
	serveCmd.Flags().String("layout-engine", "", "Layout engine: layered or graphviz")
	serveCmd.Flags().String("direction", "", "Initial layout direction: RIGHT, DOWN, LEFT or UP")
	serveCmd.Flags().String("views", "", "YAML file with view definitions")
}
