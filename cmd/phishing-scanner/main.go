package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/phishing-scanner/internal/adapters/smtpd"
	"github.com/mikey/phishing-scanner/internal/core"
	"github.com/mikey/phishing-scanner/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	server *smtpd.Server,
	repo core.ScanRepository,
) error {
	defer logger.Sync()

	// Start the ingestion server
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start SMTP server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the server before the storage behind it
	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop SMTP server", zap.Error(err))
	}

	if err := repo.Close(); err != nil {
		logger.Error("Failed to close repository", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
