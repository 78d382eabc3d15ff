package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/httpapi"
	"github.com/MrEthical07/goRealm/metrics/export/prometheus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newServeCommand())
}

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the realm HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				settings.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr).")
	return cmd
}

func serve(ctx context.Context) error {
	cfg := settings.Realm

	ids, err := newAllocator(cfg)
	if err != nil {
		return err
	}
	be, err := openBackend(ctx, ids)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error(err, "close credential store")
		}
	}()

	engine, err := goRealm.New().
		WithConfig(cfg).
		WithCredentialStore(be.credentials).
		WithAuthorizationSource(be.authz).
		WithIDAllocator(ids).
		WithAuditSink(goRealm.NewLogSink(logger)).
		WithLogger(logger.WithName("engine")).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error(err, "close engine")
		}
	}()

	opts := httpapi.Options{Logger: logger}
	if cfg.Metrics.Enabled {
		opts.MetricsHandler = prometheus.NewPrometheusExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           httpapi.NewRouter(engine, opts),
		ReadHeaderTimeout: settings.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
