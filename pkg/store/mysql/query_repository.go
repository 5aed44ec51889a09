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

// QueryRepository handles query database operations
type QueryRepository struct {
	ds *Datastore
}

// NewQueryRepository creates a new query repository
func NewQueryRepository(ds *Datastore) *QueryRepository {
	return &QueryRepository{ds: ds}
}

// CreateQuery inserts a query
func (r *QueryRepository) CreateQuery(ctx context.Context, query *model.Query) (*model.Query, error) {
	row, err := FromQueryDomain(query)
	if err != nil {
		return nil, err
	}
	row.ID = 0
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.ds.Now()
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	return ToQueryDomain(row)
}

// GetQuery returns nil when the query does not exist
func (r *QueryRepository) GetQuery(ctx context.Context, id int64) (*model.Query, error) {
	var row dbmodel.Query
	err := r.ds.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	return ToQueryDomain(&row)
}

// ListQueries lists all queries, newest first
func (r *QueryRepository) ListQueries(ctx context.Context) ([]*model.Query, error) {
	return r.list(ctx, r.ds.DB(ctx))
}

// ListActiveQueries lists processing queries, newest first
func (r *QueryRepository) ListActiveQueries(ctx context.Context) ([]*model.Query, error) {
	return r.list(ctx, r.ds.DB(ctx).Where("status = ?", string(model.QueryStatusProcessing)))
}

func (r *QueryRepository) list(_ context.Context, db *gorm.DB) ([]*model.Query, error) {
	var rows []*dbmodel.Query
	if err := db.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	out := make([]*model.Query, 0, len(rows))
	for _, row := range rows {
		q, err := ToQueryDomain(row)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// UpdateQuery applies patch under a row lock; returns nil for an unknown id
func (r *QueryRepository) UpdateQuery(ctx context.Context, id int64, patch model.QueryPatch) (*model.Query, error) {
	var updated *model.Query
	err := r.ds.ExecTx(ctx, func(txCtx context.Context) error {
		var row dbmodel.Query
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

		query, err := ToQueryDomain(&row)
		if err != nil {
			return err
		}
		patch.Apply(query)
		next, err := FromQueryDomain(query)
		if err != nil {
			return err
		}
		if err := r.ds.DB(txCtx).Save(next).Error; err != nil {
			return err
		}
		updated = query
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update query %d: %w", id, err)
	}
	return updated, nil
}

// FinishQuery moves a processing query to its terminal status (CAS on status)
func (r *QueryRepository) FinishQuery(ctx context.Context, id int64, outcome model.QueryOutcome) (*model.Query, error) {
	completedAt := outcome.CompletedAt
	result := r.ds.DB(ctx).Model(&dbmodel.Query{}).
		Where("id = ? AND status = ?", id, string(model.QueryStatusProcessing)).
		Updates(map[string]interface{}{
			"status":         string(outcome.Status),
			"final_response": outcome.FinalResponse,
			"completed_at":   &completedAt,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to finish query %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetQuery(ctx, id)
}
