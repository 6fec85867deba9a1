package main

import (
	"context"
	"fmt"
	"log"

	"order_ledger/internal/config"
	"order_ledger/internal/database"
	"order_ledger/internal/logger"
	"order_ledger/internal/migrations"

	"go.uber.org/zap"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	// Initialize database
	db, err := database.Initialize(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	// Create tables with proper schema
	fmt.Println("Creating tables...")
	if err := migrations.RunMigrations(db, zlog); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	fmt.Println("Seeding demo variant and supplier quotes...")
	if err := migrations.SeedDemoData(context.Background(), db, zlog); err != nil {
		zlog.Fatal("failed to seed demo data", zap.Error(err))
	}

	fmt.Println("Database initialization completed successfully!")
}
