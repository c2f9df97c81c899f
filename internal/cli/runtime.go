package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"subway-network/internal/config"
	"subway-network/internal/db"
	"subway-network/internal/logging"
	"subway-network/internal/memstore"
	"subway-network/internal/metrics"
	"subway-network/internal/network"
)

// runtime holds what every command needs: configuration, a logger and an
// open, migrated store.
type runtime struct {
	cfg     *config.Config
	log     *slog.Logger
	store   network.Store
	sql     *db.Store // nil for the memory store
	metrics *metrics.Collector
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)
	rt := &runtime{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewCollector(cfg.GraphCache, cfg.GraphRefreshInterval),
	}

	if strings.EqualFold(cfg.DatabaseURL, "memory") {
		log.Warn("using in-memory store; data is lost on exit")
		rt.store = memstore.New()
		return rt, nil
	}

	dsn := cfg.DatabaseURL
	if cfg.DBName != "" {
		if dsn, err = db.WithDBName(dsn, cfg.DBName); err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
	}
	s, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	log.Debug("store ready", "dialect", s.Dialect().String())
	rt.store, rt.sql = s, s
	return rt, nil
}

// manager builds a Manager over the runtime's store. pub may be nil.
func (rt *runtime) manager(pub network.EventPublisher) *network.Manager {
	return network.NewManager(rt.store, pub, rt.cfg.GraphCache, rt.cfg.GraphRefreshInterval, rt.metrics, rt.log)
}

func (rt *runtime) ready(ctx context.Context) error {
	if rt.sql == nil {
		return nil
	}
	return rt.sql.Ping(ctx)
}

func (rt *runtime) Close() {
	if rt.sql != nil {
		_ = rt.sql.Close()
	}
}
