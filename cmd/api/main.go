package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"byund.io/internal/auth"
	"byund.io/internal/config"
	"byund.io/internal/events"
	"byund.io/internal/httpapi"
	"byund.io/internal/merchant"
	"byund.io/internal/migrate"
	"byund.io/internal/obs"
	"byund.io/internal/paylink"
	"byund.io/internal/store/memory"
	"byund.io/internal/store/pg"
)

var (
	version = "dev"
	commit  = "unknown"
)

// backend is what both store implementations provide.
type backend interface {
	auth.Store
	auth.MerchantResolver
	merchant.Store
	paylink.Store
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := obs.InitLogger(obs.LogOptions{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer store.Close()

	if cfg.Settlement.TokenAddress == "" {
		log.Warn("settlement.token_address is empty; payment creation will fail")
	}

	sessions, err := auth.NewSessions(store, store, auth.WithSessionTTL(cfg.Session.TTL))
	if err != nil {
		log.WithError(err).Fatal("init sessions")
	}
	keys, err := auth.NewAPIKeys(store, time.Now)
	if err != nil {
		log.WithError(err).Fatal("init api keys")
	}
	merchants, err := merchant.NewService(store)
	if err != nil {
		log.WithError(err).Fatal("init merchants")
	}
	feed := events.New()
	links, err := paylink.NewService(store, store,
		paylink.Settlement{TokenAddress: cfg.Settlement.TokenAddress, ChainID: cfg.Settlement.ChainID},
		paylink.WithFeed(feed),
		paylink.WithCheckoutPath(cfg.Checkout.BasePath),
	)
	if err != nil {
		log.WithError(err).Fatal("init payment links")
	}

	probe := httpapi.ReadyProbe{DB: store, Timeout: 2 * time.Second}
	api, err := httpapi.New(httpapi.Deps{
		Sessions:  sessions,
		Keys:      keys,
		Merchants: merchants,
		Links:     links,
		Feed:      feed,
		Probe:     probe,
	}, httpapi.Options{
		Version:        version,
		Production:     cfg.Production(),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		RatePerSecond:  cfg.RateLimit.PerSecond,
		RateBurst:      cfg.RateLimit.Burst,
	})
	if err != nil {
		log.WithError(err).Fatal("init http api")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewGRPCServer(probe, 10*time.Second)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)
	go health.Run(ctx)

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			log.WithError(err).Fatal("grpc listen")
		}
		go func() {
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.WithError(err).Error("grpc serve")
				stop()
			}
		}()
	}

	go func() {
		log.WithFields(logrus.Fields{
			"version": version,
			"http":    srv.Addr,
			"grpc":    cfg.Server.GRPCAddr,
			"env":     cfg.App.Env,
		}).Info("starting byund-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http listen")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	grpcSrv.GracefulStop()
	log.Info("stopped")
}

// openStore picks PostgreSQL when a DSN is configured and the in-memory store otherwise.
func openStore(cfg *config.Config, log *logrus.Logger) (backend, error) {
	if cfg.Database.DSN == "" {
		log.Warn("database.dsn is empty; using the in-memory store")
		return memory.New(), nil
	}
	store, err := pg.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	mgr, err := migrate.NewManager(store.DB(), pg.MigrationsFS(), migrate.WithoutLock())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pending, err := mgr.Pending(ctx)
	switch {
	case err != nil:
		log.WithError(err).Warn("could not read migration state")
	case pending:
		log.Warn("database has pending migrations; run `migrate up`")
	}
	return store, nil
}
