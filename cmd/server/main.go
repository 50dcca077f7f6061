package main

import (
	"log"
	"os"

	"github.com/rawgrid/crocomine-agent/internal/server"
)

func main() {
	log.Println("Starting Crocomine practice server...")

	gridDir := requireEnv("CROCOMINE_GRIDS")
	grids, err := server.LoadGridDir(gridDir)
	if err != nil {
		log.Fatalf("FATAL: failed to load grids from %s: %v", gridDir, err)
	}
	if len(grids) == 0 {
		log.Fatalf("FATAL: no .croco grids found in %s", gridDir)
	}

	hub := server.NewHub()
	go hub.Run()

	r := server.SetupRouter(server.NewServer(grids, hub))

	port := getEnvOrDefault("PORT", "8000")
	log.Printf("Practice server running on :%s with %d grids", port, len(grids))
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set.", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
