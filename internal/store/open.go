package store

import (
	"fmt"
	"log/slog"

	"github.com/zg0ul/portfolio/internal/config"
	"github.com/zg0ul/portfolio/internal/project"
	"github.com/zg0ul/portfolio/internal/store/postgrest"
	"github.com/zg0ul/portfolio/internal/store/sqlite"
)

// Open returns the project store selected by cfg.StoreBackend.
func Open(cfg config.Config, log *slog.Logger) (project.Store, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		s, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite store", "path", cfg.DatabasePath)
		return s, nil
	case "postgrest":
		log.Info("using postgrest store", "url", cfg.PostgrestURL)
		return postgrest.NewClient(cfg.PostgrestURL, cfg.PostgrestAPIKey, log), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
