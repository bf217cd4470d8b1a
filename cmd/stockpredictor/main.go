package main

import (
	"os"

	"github.com/joho/godotenv"

	"StockPredictor/internal/app"
	"StockPredictor/internal/config"
	"StockPredictor/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := newRootCmd(cfg, application, logger).Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
