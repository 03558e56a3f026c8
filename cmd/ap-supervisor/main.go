package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/flightcore/ap-supervisor/internal/config"
	"github.com/flightcore/ap-supervisor/internal/service"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")

	var logger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		logger = log.New(os.Stdout, "", 0)
	} else {
		logger = log.New(os.Stdout, "ap-supervisor: ", log.LstdFlags|log.Lmsgprefix)
	}

	cfg := config.New()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *showVersion {
		fmt.Printf("ap-supervisor %s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := service.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("Received termination signal")
		cancel()
	}()

	logger.Printf("Starting autopilot supervisor %s (tick period %v)", version, cfg.TickPeriod)
	if err := svc.Run(ctx); err != nil {
		log.Fatalf("Service failed: %v", err)
	}
}
