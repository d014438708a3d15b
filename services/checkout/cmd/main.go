package main

import (
	"log"

	"github.com/riseup/payments/services/checkout/internal/app"
	"github.com/riseup/payments/services/checkout/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Build wires the store, gateway client, Kafka and HTTP layers
	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	// blocks until SIGINT/SIGTERM and the graceful shutdown finish
	if err := application.Run(); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}
