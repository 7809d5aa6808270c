package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/config"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/server"
)

func main() {
	envFile := flag.String("env", ".env", "Environment file to load before reading config")
	port := flag.String("port", "", "Server port (overrides PORT)")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, server.Options{})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
