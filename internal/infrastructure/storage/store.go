package storage

import (
	"context"
	"fmt"
	"log/slog"

	"NewsRelay/internal/config"
	"NewsRelay/internal/ports"
)

// Store is a dedup store that owns a connection.
type Store interface {
	ports.DedupStore
	Close() error
}

// Open selects the backend configured in cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.DSN, log)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
