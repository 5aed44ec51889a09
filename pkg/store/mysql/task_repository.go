package mysql

import (
	"context"
	"errors"
	"fmt"

	"labswarm/internal/model"
	dbmodel "labswarm/pkg/store/mysql/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	ds *Datastore
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(ds *Datastore) *TaskRepository {
	return &TaskRepository{ds: ds}
}

// CreateTask inserts a task
func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	row, err := FromTaskDomain(task)
	if err != nil {
		return nil, err
	}
	row.ID = 0
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return ToTaskDomain(row)
}

// GetTask returns nil when the task does not exist
func (r *TaskRepository) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	var row dbmodel.Task
	err := r.ds.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return ToTaskDomain(&row)
}

// ListTasksByQuery lists the tasks of a query in creation order
func (r *TaskRepository) ListTasksByQuery(ctx context.Context, queryID int64) ([]*model.Task, error) {
	var rows []*dbmodel.Task
	if err := r.ds.DB(ctx).Where("query_id = ?", queryID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	out := make([]*model.Task, 0, len(rows))
	for _, row := range rows {
		t, err := ToTaskDomain(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// TransitionTask applies tr when the task's status is one of from (SELECT FOR UPDATE guard)
func (r *TaskRepository) TransitionTask(ctx context.Context, id int64, from []model.TaskStatus, tr model.TaskTransition) (*model.Task, error) {
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}

	var updated *model.Task
	err := r.ds.ExecTx(ctx, func(txCtx context.Context) error {
		var row dbmodel.Task
		err := r.ds.DB(txCtx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status IN ?", id, statuses).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// unknown task or guard failed
				return nil
			}
			return err
		}

		task, err := ToTaskDomain(&row)
		if err != nil {
			return err
		}
		if !tr.Apply(task) {
			return nil
		}
		next, err := FromTaskDomain(task)
		if err != nil {
			return err
		}
		if err := r.ds.DB(txCtx).Save(next).Error; err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to transition task %d: %w", id, err)
	}
	return updated, nil
}
