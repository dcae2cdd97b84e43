package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/coderjam/config"
	"github.com/cwrk-planet/coderjam/internal/postgres"
	"github.com/cwrk-planet/coderjam/internal/redisstore"
	"github.com/cwrk-planet/coderjam/internal/service"
	"github.com/cwrk-planet/coderjam/internal/sqlite"
	grpcx "github.com/cwrk-planet/coderjam/internal/transport/grpc"
	httpx "github.com/cwrk-planet/coderjam/internal/transport/http"
	"github.com/cwrk-planet/coderjam/internal/transport/ws"
	"github.com/cwrk-planet/coderjam/pkg/logger"
)

type padStore interface {
	service.PadStore
	grpcx.Pinger
}

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting coderjam",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- store ---
	store, closer, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closer.Close()

	// --- services ---
	grants := service.NewGrantCache(store, cfg.Session.GrantTTL)
	rooms := service.NewRegistry()
	persister := service.NewPersister(store, cfg.Session.PersistTimeout)
	sessions := service.NewSessionService(store, grants, rooms, persister)
	pads := service.NewPadService(store, cfg.Session.KeyCost)

	persistCtx, stopPersist := context.WithCancel(context.Background())
	persistDone := make(chan struct{})
	go func() {
		persister.Run(persistCtx)
		close(persistDone)
	}()

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, sessions, ws.Options{
		PingEvery:         cfg.WS.PingEvery,
		MaxMessageBytes:   cfg.WS.MaxMessageBytes,
		MessagesPerSecond: cfg.WS.MessagesPerSecond,
		Burst:             cfg.WS.Burst,
		SendQueue:         cfg.WS.SendQueue,
		AllowedOrigins:    cfg.HTTP.AllowedOrigins,
	})

	// --- HTTP ---
	handler := httpx.NewHandler(pads, sessions, hub, cfg.Logging.Env)
	router := httpx.NewRouter(handler, wsServer, cfg.HTTP.AllowedOrigins)
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- run servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpcx.Server
	if cfg.GRPC.Addr != "" {
		grpcSrv = grpcx.NewServer(store)
		go grpcSrv.WatchStore(ctx, cfg.GRPC.HealthInterval)
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.Shutdown()
	}
	_ = httpSrv.Shutdown(ctxShutdown)
	// hijacked sockets are not covered by Shutdown
	hub.CloseAll()

	stopPersist()
	select {
	case <-persistDone:
	case <-ctxShutdown.Done():
		slog.Warn("persister flush timed out", "pending", persister.Pending())
	}
	slog.Info("stopped")
}

func openStore(ctx context.Context, cfg config.Store) (padStore, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ApplicationName: "coderjam",
		})
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewPadRepository(pool), closerFunc(pool.Close), nil
	case config.DriverRedis:
		s, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
