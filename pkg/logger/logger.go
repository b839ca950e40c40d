package logger

import (
	"go.uber.org/zap"
)

// New returns a zap logger suited to env: JSON output in production, console output otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
