package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the application logger for the given environment.
// "local" gets a human-readable development logger, everything else
// gets the JSON production logger.
func New(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.With(zap.String("env", env)), nil
}
