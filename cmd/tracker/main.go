// Package main runs the wallet activity tracker service: live log
// subscriptions per tracked wallet, transaction classification, the
// persistence sink, the optional ClickHouse archive and the REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-wallet-tracker/internal/api"
	"solana-wallet-tracker/internal/archive"
	"solana-wallet-tracker/internal/observability"
	"solana-wallet-tracker/internal/pricing"
	"solana-wallet-tracker/internal/solana"
	"solana-wallet-tracker/internal/storage"
	chstore "solana-wallet-tracker/internal/storage/clickhouse"
	"solana-wallet-tracker/internal/storage/memory"
	"solana-wallet-tracker/internal/storage/migrations"
	pgstore "solana-wallet-tracker/internal/storage/postgres"
	"solana-wallet-tracker/internal/tracker"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoints := flag.String("rpc-endpoints", os.Getenv("SOLANA_RPC_ENDPOINTS"), "Comma-separated Solana RPC HTTP endpoints")
	wsEndpoints := flag.String("ws-endpoints", os.Getenv("SOLANA_WS_ENDPOINTS"), "Comma-separated Solana WebSocket endpoints (parallel to -rpc-endpoints)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (empty disables the archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	listenAddr := flag.String("listen", ":8080", "HTTP listen address for the REST API")
	priceTTL := flag.Duration("price-ttl", pricing.DefaultTTL, "SOL/USD price cache TTL")
	autostart := flag.Bool("autostart", true, "Start tracking active wallets on boot")

	flag.Parse()

	logger := log.New(os.Stdout, "[tracker] ", log.LstdFlags|log.Lshortfile)

	rpcList := splitEndpoints(*rpcEndpoints)
	wsList := splitEndpoints(*wsEndpoints)
	if len(rpcList) == 0 || len(wsList) == 0 {
		logger.Fatal("--rpc-endpoints and --ws-endpoints are required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Upstream node pool
	pool, err := solana.Dial(ctx, rpcList, wsList)
	if err != nil {
		logger.Fatalf("Dial node pool: %v", err)
	}
	defer pool.Close()
	logger.Printf("Node pool ready, %d endpoints", pool.Size())

	// Stores
	var walletStore storage.WalletStore = memory.NewWalletStore()
	var recordStore storage.RecordStore = memory.NewRecordStore()

	if !*useMemory {
		pgPool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect to PostgreSQL: %v", err)
		}
		defer pgPool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
			logger.Fatalf("Run PostgreSQL migrations: %v", err)
		}
		logger.Println("PostgreSQL migrations applied")

		walletStore = pgstore.NewWalletStore(pgPool)
		recordStore = pgstore.NewRecordStore(pgPool)
	}

	metrics := observability.NewMetrics("", nil)

	// Optional ClickHouse archive
	var archiver *archive.Archiver
	var chConn *chstore.Conn
	if *clickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Run ClickHouse migrations: %v", err)
		}
		defer chConn.Close()
		logger.Println("ClickHouse migrations applied")

		archiver = archive.New(archive.Options{
			Sink:    chstore.NewRecordArchiveStore(chConn),
			Logger:  logger,
			Metrics: metrics,
		})
	}

	// Price cache over CoinGecko
	prices := pricing.NewCache(pricing.NewCoinGeckoSource(), *priceTTL, pricing.WithMetrics(metrics))

	trk := tracker.New(tracker.Options{
		WalletStore: walletStore,
		RecordStore: recordStore,
		Pool:        pool,
		Prices:      prices,
		Archiver:    archiverOrNil(archiver),
		Logger:      logger,
		Metrics:     metrics,
	})

	server := api.NewServer(api.Options{
		WalletStore:    walletStore,
		RecordStore:    recordStore,
		Tracker:        trk,
		Logger:         logger,
		MetricsHandler: observability.Handler(),
	})
	httpServer := server.NewHTTPServer(*listenAddr)

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP server shutdown: %v", err)
		}

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	if archiver != nil {
		go func() {
			if err := archiver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("Archiver error: %v", err)
			}
		}()
	}

	if *autostart {
		if err := trk.Start(ctx); err != nil {
			logger.Fatalf("Start tracker: %v", err)
		}
	}

	logger.Printf("Serving REST API on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server: %v", err)
	}

	trk.Stop(context.Background())
	close(done)
	logger.Println("Shutdown complete")
}

// archiverOrNil keeps the tracker's Archiver interface nil when no
// archive is configured, instead of a non-nil interface holding a nil
// pointer.
func archiverOrNil(a *archive.Archiver) tracker.Archiver {
	if a == nil {
		return nil
	}
	return a
}

// splitEndpoints parses a comma-separated endpoint list.
func splitEndpoints(s string) []string {
	var list []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
