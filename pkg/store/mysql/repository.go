package mysql

import (
	"context"
	"fmt"

	"labswarm/pkg/config"
	"labswarm/pkg/interfaces"
	dbmodel "labswarm/pkg/store/mysql/model"
)

var _ interfaces.Store = (*Repository)(nil)

// Repository aggregates all MySQL repositories and implements interfaces.Store
type Repository struct {
	ds *Datastore

	*WorkerRepository
	*QueryRepository
	*TaskRepository
	*RecordRepository
}

// NewRepository creates a new MySQL repository with all sub-repositories
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}
	return newRepository(ds), nil
}

func newRepository(ds *Datastore) *Repository {
	return &Repository{
		ds:               ds,
		WorkerRepository: NewWorkerRepository(ds),
		QueryRepository:  NewQueryRepository(ds),
		TaskRepository:   NewTaskRepository(ds),
		RecordRepository: NewRecordRepository(ds),
	}
}

// DSN builds the connection string from config
func DSN(cfg config.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// Migrate creates or updates every table
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.ds.DB(ctx).AutoMigrate(dbmodel.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
