package cli

import (
	"go.uber.org/zap"

	"github.com/openendpoint/openendpoint/internal/config"
)

// buildLogger returns a production-style logger for "production"/"staging"
// environments and a development-style one (human-readable, debug-level)
// otherwise, matching zap.NewProduction/zap.NewDevelopment used elsewhere
// in this tree.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" || cfg.Environment == "staging" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
