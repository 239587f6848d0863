package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/invsync/inventory-sync-server/internal/catalog"
	"github.com/invsync/inventory-sync-server/internal/config"
	"github.com/invsync/inventory-sync-server/internal/history"
	"github.com/invsync/inventory-sync-server/internal/httpapi"
	"github.com/invsync/inventory-sync-server/internal/remote"
	"github.com/invsync/inventory-sync-server/internal/syncer"
	"github.com/invsync/inventory-sync-server/internal/target"
	"github.com/invsync/inventory-sync-server/internal/version"
)

func main() {
	log.Println(version.String())

	configPath := os.Getenv("SYNC_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
		log.Printf("Using default SYNC_CONFIG: %s", configPath)
	}

	cfg, creds, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	registry, err := target.NewRegistry(creds)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	log.Printf("Configured targets: %v", registry.Names())

	apiKey := cfg.APIKey
	if envKey := os.Getenv("SYNC_API_KEY"); envKey != "" {
		apiKey = envKey
	}

	listen := cfg.Listen
	if port := os.Getenv("PORT"); port != "" {
		listen = ":" + port
	}

	// One remote client and stats block per target, shared between the
	// catalog fetcher and the stock updater.
	stats := make(map[string]*remote.Stats, len(creds))
	clients := make(map[string]*remote.Client, len(creds))
	for _, c := range creds {
		stats[c.Name] = &remote.Stats{}
		clients[c.Name] = remote.NewClient(c, stats[c.Name])
	}

	cache := catalog.NewCache()
	fetcher := catalog.NewFetcher(cache, func(tgt *target.Credentials) catalog.Lister {
		return clients[tgt.Name]
	})
	engine := syncer.NewEngine(registry, fetcher, func(tgt *target.Credentials) syncer.Updater {
		return clients[tgt.Name]
	})

	runs := history.NewStore(cfg.HistorySize)

	handler := httpapi.NewHandler(engine, runs)
	router := httpapi.SetupRouter(handler, apiKey)

	server := &http.Server{
		Addr:    listen,
		Handler: router,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
