package config

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the service logger: a development logger for local and
// testing environments, a production (JSON) logger otherwise. App.Debug
// lowers a production logger to debug level.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch {
	case cfg.IsLocal():
		logger, err = zap.NewDevelopment()
	case cfg.App.Debug:
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		logger, err = zc.Build()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("config: create logger: %w", err)
	}
	return logger.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env)), nil
}
