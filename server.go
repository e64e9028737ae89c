package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hexlands/pkg/config"
	"hexlands/pkg/gateway"
	"hexlands/pkg/kv"
	"hexlands/pkg/store"
	"hexlands/pkg/world"
	"hexlands/pkg/worldgen"
)

// openStore picks the live key-value side: Redis when an addr is
// configured, the in-process store otherwise. A configured Redis that does
// not answer is fatal; silently falling back would hide an outage.
func openStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (kv.Store, func() error, error) {
	if cfg.Addr == "" {
		log.Warn("no redis addr configured, running on the in-process store")
		return kv.NewMemory(), func() error { return nil }, nil
	}
	r := kv.NewRedis(kv.RedisOptions{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, nil, err
	}
	return r, r.Close, nil
}

// openSink picks the durable snapshot side.
func openSink(ctx context.Context, cfg config.DatabaseConfig) (world.SnapshotSink, world.Archiver, func() error, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, s.Close, nil
	case "postgres":
		p, err := store.OpenPostgres(ctx, store.PostgresOptions{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return p, p, func() error { p.Close(); return nil }, nil
	default:
		return nil, nil, func() error { return nil }, nil
	}
}

func buildMux(hub *gateway.Hub, engine *world.Engine, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"gateway":  hub.Stats(),
			"uptime_s": int(time.Since(started).Seconds()),
		})
	})

	// Read-only leaderboard mirror for dashboards that do not hold a
	// socket open.
	mux.HandleFunc("/api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		limit := engine.Config().MaxLeaderboardEntries
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		entries, err := engine.Leaderboard(r.Context(), limit)
		if err != nil {
			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"entries": entries})
	})

	return mux
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kvStore, closeKV, err := openStore(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeKV()

	sink, archiver, closeSink, err := openSink(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeSink()

	engine := world.NewEngine(cfg.Game, kvStore, sink)
	engine.Archiver = archiver
	engine.OnError = func(err error) {
		log.Error("background sweep failed", zap.Error(err))
	}

	if cfg.Worldgen.Enabled {
		n, err := worldgen.Seed(ctx, engine, cfg.Worldgen.Options)
		if err != nil {
			return fmt.Errorf("seed world: %w", err)
		}
		log.Info("nexus cores seeded", zap.Int("count", n))
	}

	hub := gateway.New(engine, cfg.Gateway)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      buildMux(hub, engine, time.Now()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	engine.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	// Let an in-flight sweep finish, then persist the freshest state.
	engine.Close()
	if _, ferr := engine.FlushSnapshots(context.Background()); ferr != nil {
		log.Error("final snapshot flush", zap.Error(ferr))
	}
	return err
}
