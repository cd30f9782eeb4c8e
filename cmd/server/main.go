package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sensing-garden/backend/internal/api"
	"github.com/sensing-garden/backend/internal/auth"
	"github.com/sensing-garden/backend/internal/config"
	"github.com/sensing-garden/backend/internal/export"
	"github.com/sensing-garden/backend/internal/pkg/logger"
	"github.com/sensing-garden/backend/internal/storage"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	log.Println("Sensing Garden API server")

	// Load configuration
	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactLocation(cfg.Logging.RedactLocation())

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// AWS clients
	clients, err := storage.NewClients(ctx, cfg.AWS.ClientConfig())
	if err != nil {
		log.Fatalf("Failed to initialize AWS clients: %v", err)
	}
	if cfg.AWS.EndpointURL != "" {
		log.Printf("AWS endpoint override active: %s (local development mode)", cfg.AWS.EndpointURL)
	}

	// Record store
	tables := cfg.Tables.Resolve()
	store := storage.NewStore(clients.DynamoDB, tables)
	log.Printf("Record store initialized (detections table: %s)", tables.Detections)

	// Media store over S3: uploads plus presigned GET URLs
	presigner := s3.NewPresignClient(clients.S3)
	media := storage.NewMediaStore(clients.S3, presigner,
		cfg.Media.ImagesBucket, cfg.Media.VideosBucket, cfg.Media.PresignTTL())
	log.Printf("Media store initialized (images: %s, videos: %s, presign TTL: %s)",
		cfg.Media.ImagesBucket, cfg.Media.VideosBucket, cfg.Media.PresignTTL())

	// CSV export engine
	exporter := export.NewExporter(store, export.Limits{
		PageLimit: cfg.Export.PageLimit,
		MaxPages:  cfg.Export.MaxPages,
	})

	handlers := api.NewHandlers(store, media, exporter, cfg.Export.QueryLimit)

	// Health checker probes the detections table and the images bucket
	healthChecker := api.NewHealthChecker(clients.DynamoDB, tables.Detections,
		clients.S3, cfg.Media.ImagesBucket)

	keyring := auth.NewKeyring(cfg.Auth.APIKey)
	if keyring.Enabled() {
		log.Println("API key authentication enabled (x-api-key)")
	}

	server := api.NewServer(handlers, healthChecker, keyring)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized, server is ready")

	<-done
	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
