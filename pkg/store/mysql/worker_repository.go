package mysql

import (
	"context"
	"errors"
	"fmt"

	"labswarm/internal/model"
	"labswarm/pkg/interfaces"
	dbmodel "labswarm/pkg/store/mysql/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkerRepository handles worker database operations
type WorkerRepository struct {
	ds *Datastore
}

// NewWorkerRepository creates a new worker repository
func NewWorkerRepository(ds *Datastore) *WorkerRepository {
	return &WorkerRepository{ds: ds}
}

// CreateWorker inserts a worker; the id is assigned by the database
func (r *WorkerRepository) CreateWorker(ctx context.Context, worker *model.Worker) (*model.Worker, error) {
	row := FromWorkerDomain(worker)
	row.ID = 0
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.ds.Now()
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}
	return ToWorkerDomain(row), nil
}

// GetWorker returns nil when the worker does not exist
func (r *WorkerRepository) GetWorker(ctx context.Context, id int64) (*model.Worker, error) {
	var row dbmodel.Worker
	err := r.ds.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return ToWorkerDomain(&row), nil
}

// GetWorkerByName returns the oldest worker with name, nil if none
func (r *WorkerRepository) GetWorkerByName(ctx context.Context, name string) (*model.Worker, error) {
	var row dbmodel.Worker
	err := r.ds.DB(ctx).Where("name = ?", name).Order("id ASC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get worker by name: %w", err)
	}
	return ToWorkerDomain(&row), nil
}

// ListWorkers lists workers in id order
func (r *WorkerRepository) ListWorkers(ctx context.Context) ([]*model.Worker, error) {
	var rows []*dbmodel.Worker
	if err := r.ds.DB(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	out := make([]*model.Worker, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToWorkerDomain(row))
	}
	return out, nil
}

// UpdateWorker applies patch under a row lock; returns nil for an unknown id
func (r *WorkerRepository) UpdateWorker(ctx context.Context, id int64, patch model.WorkerPatch) (*model.Worker, error) {
	var updated *model.Worker
	err := r.ds.ExecTx(ctx, func(txCtx context.Context) error {
		var row dbmodel.Worker
		err := r.ds.DB(txCtx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		worker := ToWorkerDomain(&row)
		patch.Apply(worker)
		if err := r.ds.DB(txCtx).Save(FromWorkerDomain(worker)).Error; err != nil {
			return err
		}
		updated = worker
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update worker %d: %w", id, err)
	}
	return updated, nil
}

// DeleteWorker removes a worker; interfaces.ErrNotFound when absent
func (r *WorkerRepository) DeleteWorker(ctx context.Context, id int64) error {
	result := r.ds.DB(ctx).Where("id = ?", id).Delete(&dbmodel.Worker{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete worker: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// AdvanceWorkerProgress adds delta under a row lock while the worker keeps status
func (r *WorkerRepository) AdvanceWorkerProgress(ctx context.Context, id int64, status model.WorkerStatus, delta int) (*model.Worker, error) {
	var updated *model.Worker
	err := r.ds.ExecTx(ctx, func(txCtx context.Context) error {
		var row dbmodel.Worker
		err := r.ds.DB(txCtx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, string(status)).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		worker := ToWorkerDomain(&row)
		if !worker.Advance(status, delta) {
			return nil
		}
		if err := r.ds.DB(txCtx).Model(&dbmodel.Worker{}).
			Where("id = ?", id).
			Update("progress", worker.Progress).Error; err != nil {
			return err
		}
		updated = worker
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance worker %d: %w", id, err)
	}
	return updated, nil
}
