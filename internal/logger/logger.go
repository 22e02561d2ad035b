package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Init builds the process-wide logger for env and installs it as zap's global logger.
func Init(env string) error {
	var (
		logger *zap.Logger
		err    error
	)

	switch env {
	case "production", "staging":
		logger, err = zap.NewProduction()
	case "test":
		logger = zap.NewNop()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return fmt.Errorf("failed to build zap logger -> %w", err)
	}

	zap.ReplaceGlobals(logger)

	return nil
}
