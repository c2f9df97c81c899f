package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subway-network/internal/api"
	"subway-network/internal/metrics"
	"subway-network/internal/network"
	"subway-network/internal/publisher"
	"subway-network/internal/seed"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Root context with cancellation on SIGINT/SIGTERM
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, log := rt.cfg, rt.log

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = rt.metrics.Serve(cfg.MetricsAddr, log)
	}

	var pub network.EventPublisher
	if cfg.NATSURL != "" {
		np, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, metrics.PublisherMetrics{C: rt.metrics}, log)
		if err != nil {
			return err
		}
		defer np.Close()
		pub = np
		log.Info("publishing change events", "nats", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	}

	mgr := rt.manager(pub)
	if cfg.SeedFile != "" {
		f, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		sum, err := seed.Apply(ctx, mgr, f, log)
		if err != nil {
			return err
		}
		log.Info("seed applied", "file", cfg.SeedFile, "stations", sum.StationsCreated, "lines", sum.LinesCreated, "skipped", sum.LinesSkipped)
	}
	mgr.StartRefresher(ctx)
	defer mgr.Stop()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewServer(mgr, rt.metrics, log,
			api.WithTimeout(cfg.RequestTimeout),
			api.WithReadiness(rt.ready),
		).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "graph_cache", cfg.GraphCache)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	log.Info("shutdown complete")
	return nil
}
