package store

import (
	"context"
	"fmt"

	"labswarm/pkg/config"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/store/memory"
	"labswarm/pkg/store/mysql"
)

// CreateStore creates the persistence store selected by providers.store.
// The mysql store migrates its schema before returning.
func CreateStore(ctx context.Context, cfg *config.Config) (interfaces.Store, error) {
	switch cfg.Providers.Store {
	case "memory", "":
		return memory.NewStore(), nil
	case "mysql":
		repo, err := mysql.NewRepository(mysql.DSN(cfg.MySQL))
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported store provider type: %s", cfg.Providers.Store)
	}
}
