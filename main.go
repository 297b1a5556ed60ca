package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config (defaults if empty)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var db *DB
	if cfg.Database.Path != "" {
		db, err = OpenDB(cfg.Database.Path)
		if err != nil {
			log.Fatal("open database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer db.Close()
	} else {
		log.Info("persistence disabled")
	}

	var sinks []EventSink
	var analytics *Analytics
	var stats *StatsRecorder
	if db != nil {
		analytics = NewAnalytics(db, log.Named("analytics"))
		stats = NewStatsRecorder(db, log.Named("db"))
		sinks = append(sinks, analytics, stats)
	}

	game := NewGame(cfg, log.Named("game"), sinks...)
	go game.Run()

	hub := NewHub(cfg, game, db, analytics, log.Named("hub"))
	go hub.Run()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           SetupRoutes(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.Int("physics_hz", cfg.Simulation.PhysicsRate),
			zap.Int("network_hz", cfg.Simulation.NetworkRate))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-stop
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	hub.Stop()
	game.Stop()
	if analytics != nil {
		analytics.Stop()
	}
	if stats != nil {
		stats.Stop()
	}
}
