// Package logger builds the process-wide structured logger.
package logger

import (
	"os"

	"go.uber.org/zap"
)

// New returns a production zap logger, or a human-readable development logger
// when LOG_MODE=dev.
func New() (*zap.Logger, error) {
	if os.Getenv("LOG_MODE") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
