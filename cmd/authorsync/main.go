package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pevans/authorsync"
	"github.com/pevans/authorsync/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("ERROR: Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Setup signal handling so an interrupted run still releases the browser
	// and the database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("INFO: Received signal: %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Printf("INFO: Syncing %s articles by %s", cfg.Resource, cfg.Author)

	if _, err := authorsync.Run(ctx, cfg, authorsync.DefaultDependencies()); err != nil {
		if authorsync.IsListingError(err) {
			log.Printf("ERROR: Could not read the listing page: %v", err)
		} else {
			log.Printf("ERROR: Run failed: %v", err)
		}
		cancel()
		os.Exit(1)
	}
}
