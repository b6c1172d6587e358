// Command migrate applies the schema and index migrations and exits.
package main

import (
	"github.com/joho/godotenv"
	"github.com/nexus-social/backend/internal/config"
	"github.com/nexus-social/backend/internal/database"
	"github.com/nexus-social/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("migration failed", zap.Error(err))
	}

	logger.Log.Info("migrations applied")
}
