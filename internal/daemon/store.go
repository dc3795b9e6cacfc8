package daemon

import (
	"context"
	"fmt"
	"log"

	"github.com/udhar-khata/khata/internal/domain"
	"github.com/udhar-khata/khata/internal/infra/memory"
	"github.com/udhar-khata/khata/internal/infra/postgres"
	"github.com/udhar-khata/khata/internal/infra/redisstore"
	"github.com/udhar-khata/khata/internal/infra/sqlite"
)

// Store is a KVStore that owns a connection or file handle.
type Store interface {
	domain.KVStore
	Close() error
}

// OpenStore opens the backend named in cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Store.Backend {
	case BackendSQLite, "":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Printf("[store] sqlite %s", db.Path())
		return db, nil

	case BackendMemory:
		log.Printf("[store] memory (nothing will be persisted)")
		return memory.NewStore(), nil

	case BackendRedis:
		s, err := redisstore.Dial(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		log.Printf("[store] redis %s db=%d", cfg.Redis.Addr, cfg.Redis.DB)
		return s, nil

	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("open postgres store: [postgres] dsn is empty")
		}
		s, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Printf("[store] postgres table=%s", cfg.Postgres.Table)
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, cfg.Store.Backend)
}
