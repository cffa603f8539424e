package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-contracts/internal/config"
	"github.com/diewo77/go-contracts/internal/db"
	"github.com/diewo77/go-contracts/internal/server"
)

var (
	configFlag      = flag.String("config", "", "Path to a contracts.yaml config file")
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	dbCfg := db.Config{
		DSN:           cfg.DatabaseDSN,
		Migrations:    cfg.Migrations,
		MigrationsDir: cfg.MigrationsDir,
		Debug:         cfg.DBDebug,
	}
	dbConn, err := db.Open(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(dbConn, dbCfg); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if *migrateOnlyFlag {
		log.Println("Migrations completed successfully")
		return
	}

	if cfg.Seed || *seedOnlyFlag {
		err = db.SeedDemo(dbConn, cfg.SeedPassword)
	} else {
		err = db.Seed(dbConn)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if *seedOnlyFlag {
		log.Println("Seeding completed successfully")
		return
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	handler := server.New(dbConn, server.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.Production(),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Printf("Server starting port=%s env=%s", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}
