package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/saviobatista/sbs-deconflict/internal/nats"
	"github.com/saviobatista/sbs-deconflict/internal/storage"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

func main() {
	if err := runPassLog(); err != nil {
		log.Printf("Pass log failed: %v", err)
		os.Exit(1)
	}
}

// runPassLog subscribes to pass events and appends them to daily files
// until interrupted
func runPassLog() error {
	outputDir, natsURL := parseEnvironment()

	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	client, err := nats.New(natsURL)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}

	eventLog := storage.NewEventLog(outputDir, "passes")
	if err := client.SubscribePasses(passHandler(eventLog)); err != nil {
		client.Close()
		_ = eventLog.Close()
		return fmt.Errorf("failed to subscribe to pass events: %w", err)
	}
	log.Printf("Writing pass events to %s", outputDir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	client.Close()
	if err := eventLog.Close(); err != nil {
		log.Printf("Failed to close event log: %v", err)
	}
	return nil
}

// parseEnvironment extracts environment variables with defaults
func parseEnvironment() (string, string) {
	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "./logs"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://nats:4222"
	}

	return outputDir, natsURL
}

// passHandler writes each raw event payload as one line
func passHandler(eventLog *storage.EventLog) func(*types.PassEvent, []byte) {
	return func(event *types.PassEvent, raw []byte) {
		if err := eventLog.Write(raw); err != nil {
			log.Printf("Failed to write pass %d of run %s: %v", event.Pass, event.RunID, err)
		}
	}
}
