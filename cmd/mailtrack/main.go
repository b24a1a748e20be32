package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/api"
	"github.com/edvin/mailtrack/internal/config"
	"github.com/edvin/mailtrack/internal/db"
	"github.com/edvin/mailtrack/internal/events"
	"github.com/edvin/mailtrack/internal/logging"
	"github.com/edvin/mailtrack/internal/metrics"
	"github.com/edvin/mailtrack/internal/resend"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "", "Migration files directory (default: migrations built into the binary)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		res, err := db.RunMigrations(ctx, cfg.DatabaseURL, *migrateDirFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", res.Applied).Int64("version", res.Version).Msg("database migrations complete")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		ApplicationName: cfg.ServiceName,
		MaxConns:        cfg.DBMaxConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, pool)

	pub, feed, err := newChangeFeed(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up change feed")
	}
	defer pub.Close()
	defer feed.Close()

	provider, err := resend.NewClient(cfg.ResendAPIURL, cfg.ResendAPIKey, cfg.ProviderTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build provider client")
	}

	srv, err := api.NewServer(logger, pool, provider, pub, feed, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting mailtrack server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsListenAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsListenAddr, prometheus.DefaultGatherer)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
}

// newChangeFeed returns the publisher and subscriber for live updates: NATS
// when configured, otherwise one in-process hub serving both roles.
func newChangeFeed(cfg *config.Config, logger zerolog.Logger) (events.Publisher, events.Subscriber, error) {
	if cfg.NATSURL == "" {
		hub := events.NewHub()
		return hub, hub, nil
	}

	tlsCfg, err := cfg.NATSTLS()
	if err != nil {
		return nil, nil, err
	}
	var opts []nats.Option
	if tlsCfg != nil {
		opts = append(opts, nats.Secure(tlsCfg))
	}

	pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, opts...)
	if err != nil {
		return nil, nil, err
	}
	sub, err := events.NewNATSSubscriber(cfg.NATSURL, cfg.NATSSubjectPrefix, opts...)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	logger.Info().Str("url", cfg.NATSURL).Str("prefix", cfg.NATSSubjectPrefix).Msg("using NATS change feed")
	return pub, sub, nil
}
