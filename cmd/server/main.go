/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cash-flow forecasting server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and optional YAML config file
  2. Initialize SQLite store
  3. Create API handler and router
  4. Start the forecast refresh scheduler
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags override YAML file values; YAML overrides defaults.

  -config  Path to a YAML config file (optional)
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: cashflow.db)
           Use ":memory:" for an in-memory database
  -cron    Cron spec for the scheduled forecast refresh
           (default: "0 6 * * *"; empty string disables)

  YAML keys: port, db, cron, cors_origins (list).

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/cashflow.db"

  # Run from a config file, overriding the port
  ./server -config=./config.yaml -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Forecast refresh scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/cashflow-engine/api"
	"github.com/warp/cashflow-engine/store/sqlite"
)

type config struct {
	Port        int      `yaml:"port"`
	DB          string   `yaml:"db"`
	Cron        string   `yaml:"cron"`
	CORSOrigins []string `yaml:"cors_origins"`
}

func loadConfig(path string) (config, error) {
	cfg := config{
		Port: 8080,
		DB:   "cashflow.db",
		Cron: api.DefaultCronSpec,
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	cronSpec := flag.String("cron", api.DefaultCronSpec, "Forecast refresh cron spec, empty to disable")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "cron" {
			cfg.Cron = *cronSpec // explicit flag wins, empty disables
		}
	})

	// Initialize store
	store, err := sqlite.New(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Scheduled forecast refresh
	var scheduler *api.ForecastScheduler
	if cfg.Cron != "" {
		scheduler = api.NewForecastScheduler(store, cfg.Cron)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
