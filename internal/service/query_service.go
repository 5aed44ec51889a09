package service

import (
	"context"
	"fmt"
	"strings"

	"labswarm/internal/model"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/logger"
)

// QueryService query submission and lookup
type QueryService struct {
	store         interfaces.Store
	scheduler     *Scheduler
	activity      *ActivityService
	bus           *eventbus.Bus
	defaultUserID string
}

// NewQueryService creates a new query service
func NewQueryService(store interfaces.Store, scheduler *Scheduler, activity *ActivityService, bus *eventbus.Bus, defaultUserID string) *QueryService {
	return &QueryService{
		store:         store,
		scheduler:     scheduler,
		activity:      activity,
		bus:           bus,
		defaultUserID: defaultUserID,
	}
}

// SubmitQuery plans a query and schedules its phases. It returns the processing
// snapshot without waiting for any phase.
func (s *QueryService) SubmitQuery(ctx context.Context, content, userID string) (*model.Query, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyQuery
	}
	if userID == "" {
		userID = s.defaultUserID
	}

	query, tasks, err := s.scheduler.Plan(ctx, content, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.activity.Record(ctx, nil, constants.ActionQuerySubmitted,
		fmt.Sprintf("Query submitted: %s...", truncate(content, 50))); err != nil {
		logger.WarnCtx(ctx, "failed to record query activity, query_id: %d, error: %v", query.ID, err)
	}
	s.bus.Publish(constants.EventQueryStarted, query)

	if err := s.scheduler.Schedule(ctx, query.ID); err != nil {
		logger.ErrorCtx(ctx, "failed to schedule query phases, query_id: %d, error: %v", query.ID, err)
		if _, cancelErr := s.scheduler.CancelQuery(ctx, query.ID); cancelErr != nil {
			logger.ErrorCtx(ctx, "failed to abort unscheduled query, query_id: %d, error: %v", query.ID, cancelErr)
		}
		return nil, fmt.Errorf("failed to schedule query: %w", err)
	}

	logger.InfoCtx(ctx, "query submitted, query_id: %d, type: %s, complexity: %s, tasks: %d",
		query.ID, query.Metadata.Analysis.Type, query.Metadata.Analysis.Complexity, len(tasks))
	return query, nil
}

// GetQuery returns a query with its tasks
func (s *QueryService) GetQuery(ctx context.Context, id int64) (*model.QueryWithTasks, error) {
	query, err := s.store.GetQuery(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	if query == nil {
		return nil, ErrNotFound
	}
	tasks, err := s.store.ListTasksByQuery(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return &model.QueryWithTasks{Query: query, Tasks: tasks}, nil
}

// GetTask returns a single task
func (s *QueryService) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

// ListQueries lists queries newest first
func (s *QueryService) ListQueries(ctx context.Context) ([]*model.Query, error) {
	queries, err := s.store.ListQueries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	return queries, nil
}

// ListActiveQueries lists queries still processing
func (s *QueryService) ListActiveQueries(ctx context.Context) ([]*model.Query, error) {
	queries, err := s.store.ListActiveQueries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active queries: %w", err)
	}
	return queries, nil
}

// CancelQuery cancels a processing query
func (s *QueryService) CancelQuery(ctx context.Context, id int64) (*model.Query, error) {
	return s.scheduler.CancelQuery(ctx, id)
}
