// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"spotshare/internal/adapter/chat"
	"spotshare/internal/adapter/notify"
	"spotshare/internal/adapter/storage"
	"spotshare/internal/config"
	"spotshare/internal/event"
	"spotshare/internal/server"
	"spotshare/internal/service/lifecycle"
	"spotshare/internal/service/proximity"
	"spotshare/internal/store"
)

func main() {
	// Load .env if present, then configuration from the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	// The authoritative spot collection lives in memory; every lifecycle
	// transition is one atomic mutate against it.
	spotStore := store.NewMemStore()

	// Event bus and collaborators
	bus := event.NewBus()

	dispatcher := notify.NewDispatcher(natsConn, cfg.Spot.EventsTopic)
	bus.Subscribe(dispatcher.Handle)

	bridge := chat.NewBridge(natsConn)
	bus.Subscribe(bridge.Handle)

	// Optional history archive
	var history *storage.HistoryStore
	if cfg.Database.Enabled() {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		history = storage.NewHistoryStore(db)
		bus.Subscribe(history.Handle)
	}

	// Lifecycle engine and expiry sweeper
	engine := lifecycle.NewEngine(spotStore, bus, lifecycle.EngineConfig{
		ExpiryHorizon:  cfg.Spot.ExpiryHorizon,
		RemovalGrace:   cfg.Spot.RemovalGrace,
		MaxActiveSpots: cfg.Spot.MaxActiveSpots,
	})

	sweeper := lifecycle.NewSweeper(spotStore, bus, lifecycle.SweeperConfig{
		Interval: cfg.Spot.SweepInterval,
	})
	sweeper.Start()

	// Proximity matcher
	matcher := proximity.NewMatcher(spotStore, proximity.MatcherConfig{
		DefaultRadiusMeters: cfg.Query.DefaultRadiusMeters,
		DefaultMaxAge:       cfg.Query.DefaultMaxAge,
	})

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		natsConn,
		engine,
		matcher,
		bridge,
		history,
	)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Printf("Sweeper shutdown error: %v", err)
	}

	if err := engine.Stop(shutdownCtx); err != nil {
		log.Printf("Engine shutdown error: %v", err)
	}

	if err := bus.Drain(shutdownCtx); err != nil {
		log.Printf("Event bus drain error: %v", err)
	}

	log.Println("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
