package main

import (
	"log/slog"

	"github.com/petabytecl/jobu/logger"
)

func logDefaultConfig() logger.Config {
	return logger.DefaultConfig()
}

// loggerFromConfig builds the shared *slog.Logger, matching the logger
// package's own Validate/SetDefaults contract (run by config.Manager's
// struct-tag + Validator pass for AppConfig.Log).
func loggerFromConfig(cfg AppConfig) *slog.Logger {
	logCfg := cfg.Log
	return logger.NewLogger(&logCfg)
}
