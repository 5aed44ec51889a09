package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"labswarm/internal/model"
	"labswarm/pkg/classifier"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/logger"
	"labswarm/pkg/narrative"
)

// PhaseDelays phase offsets measured from submission
type PhaseDelays struct {
	Start    time.Duration
	Progress time.Duration
	Complete time.Duration
}

func (d PhaseDelays) of(phase interfaces.Phase) time.Duration {
	switch phase {
	case interfaces.PhaseStart:
		return d.Start
	case interfaces.PhaseProgress:
		return d.Progress
	default:
		return d.Complete
	}
}

// Scheduler plans queries into worker tasks and drives them through the phase pipeline
type Scheduler struct {
	store       interfaces.Store
	queue       interfaces.PhaseQueue
	bus         *eventbus.Bus
	activity    *ActivityService
	formatter   narrative.Formatter
	synthesizer Synthesizer
	rnd         narrative.Random
	delays      PhaseDelays
	now         func() time.Time

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(
	store interfaces.Store,
	queue interfaces.PhaseQueue,
	bus *eventbus.Bus,
	activity *ActivityService,
	formatter narrative.Formatter,
	synthesizer Synthesizer,
	rnd narrative.Random,
	delays PhaseDelays,
) *Scheduler {
	return &Scheduler{
		store:       store,
		queue:       queue,
		bus:         bus,
		activity:    activity,
		formatter:   formatter,
		synthesizer: synthesizer,
		rnd:         rnd,
		delays:      delays,
		now:         time.Now,
		locks:       make(map[int64]*sync.Mutex),
	}
}

type taskRole struct {
	taskType model.TaskType
	prefix   string
}

var specializationRoles = map[string]taskRole{
	constants.SpecializationTheoreticalPhysics:   {model.TaskTypeAnalysis, "Theoretical physics analysis"},
	constants.SpecializationElectromagnetic:      {model.TaskTypeAnalysis, "Electromagnetic analysis"},
	constants.SpecializationDataCollection:       {model.TaskTypeResearch, "Literature search and data collection"},
	constants.SpecializationHypothesisGeneration: {model.TaskTypeSynthesis, "Generate follow-up questions and experimental approaches"},
}

var supportRole = taskRole{model.TaskTypeCalculation, "Supporting calculations and data processing"}

func roleOf(w *model.Worker) taskRole {
	if w.Kind == model.WorkerKindSpecialist && w.Specialization != nil {
		if role, ok := specializationRoles[*w.Specialization]; ok {
			return role
		}
	}
	return supportRole
}

// Plan classifies content and persists the query with one pending task per resolved worker.
// Required workers missing from the registry are skipped.
func (s *Scheduler) Plan(ctx context.Context, content, userID string) (*model.Query, []*model.Task, error) {
	analysis := classifier.Classify(content)
	now := s.now()

	query, err := s.store.CreateQuery(ctx, &model.Query{
		UserID:                userID,
		Content:               content,
		Status:                model.QueryStatusProcessing,
		Priority:              classifier.PriorityOf(analysis),
		AssignedWorkers:       []string{},
		EstimatedCompletionAt: model.TimePtr(now.Add(time.Duration(analysis.EstimatedMinutes) * time.Minute)),
		Metadata: model.QueryMetadata{
			Analysis:  analysis,
			StartTime: now,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create query: %w", err)
	}

	assigned := make([]string, 0, len(analysis.RequiredWorkers))
	tasks := make([]*model.Task, 0, len(analysis.RequiredWorkers))
	for _, name := range analysis.RequiredWorkers {
		worker, err := s.store.GetWorkerByName(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve worker %s: %w", name, err)
		}
		if worker == nil {
			logger.WarnCtx(ctx, "required worker not registered, skipping, query_id: %d, worker: %s", query.ID, name)
			continue
		}

		role := roleOf(worker)
		task, err := s.store.CreateTask(ctx, &model.Task{
			QueryID:     query.ID,
			WorkerID:    model.Int64Ptr(worker.ID),
			TaskType:    role.taskType,
			Description: role.prefix + ": " + content,
			Status:      model.TaskStatusPending,
			Metadata: model.TaskMetadata{
				QueryAnalysis: analysis,
				AssignedAt:    now,
				WorkerName:    worker.Name,
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create task: %w", err)
		}
		assigned = append(assigned, worker.Name)
		tasks = append(tasks, task)
	}

	metadata := query.Metadata
	metadata.TaskCount = len(tasks)
	query, err = s.store.UpdateQuery(ctx, query.ID, model.QueryPatch{
		AssignedWorkers: assigned,
		Metadata:        &metadata,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update query: %w", err)
	}
	return query, tasks, nil
}

// Schedule enqueues the three phases of a planned query
func (s *Scheduler) Schedule(ctx context.Context, queryID int64) error {
	for _, phase := range interfaces.Phases {
		job := interfaces.PhaseJob{QueryID: queryID, Phase: phase}
		if err := s.queue.Schedule(ctx, job, s.delays.of(phase)); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Key(), err)
		}
	}
	return nil
}

// HandlePhase runs one phase of a query. It is safe to call more than once per phase.
func (s *Scheduler) HandlePhase(ctx context.Context, job interfaces.PhaseJob) (err error) {
	mu := s.lockFor(job.QueryID)
	mu.Lock()
	defer mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "phase handler panic, job: %s, panic: %v\n%s", job.Key(), r, debug.Stack())
			err = fmt.Errorf("phase %s panicked: %v", job.Key(), r)
		}
	}()

	query, err := s.store.GetQuery(ctx, job.QueryID)
	if err != nil {
		return fmt.Errorf("failed to get query: %w", err)
	}
	if query == nil || query.Status.IsTerminal() {
		logger.DebugCtx(ctx, "phase skipped, job: %s", job.Key())
		return nil
	}

	tasks, err := s.store.ListTasksByQuery(ctx, query.ID)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	switch job.Phase {
	case interfaces.PhaseStart:
		s.startTasks(ctx, tasks)
	case interfaces.PhaseProgress:
		s.progressTasks(ctx, tasks)
	case interfaces.PhaseComplete:
		s.completeTasks(ctx, query, tasks)
		// the lock entry stays until the query is final
		if err := s.finalize(ctx, query.ID); err != nil {
			return err
		}
		s.releaseLock(query.ID)
	default:
		return fmt.Errorf("unknown phase %q", job.Phase)
	}
	return nil
}

// CancelQuery stops a processing query: pending phases are dropped and open tasks fail
func (s *Scheduler) CancelQuery(ctx context.Context, queryID int64) (*model.Query, error) {
	mu := s.lockFor(queryID)
	mu.Lock()
	defer mu.Unlock()

	query, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	if query == nil {
		return nil, ErrNotFound
	}
	if query.Status.IsTerminal() {
		return query, ErrQueryFinished
	}

	if err := s.queue.CancelQuery(ctx, queryID); err != nil {
		logger.WarnCtx(ctx, "failed to cancel pending phases, query_id: %d, error: %v", queryID, err)
	}

	tasks, err := s.store.ListTasksByQuery(ctx, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	for _, task := range tasks {
		if task.Status.IsTerminal() {
			continue
		}
		s.failTask(ctx, query, task, "cancelled")
	}

	metadata := query.Metadata
	metadata.Cancelled = true
	if _, err := s.store.UpdateQuery(ctx, queryID, model.QueryPatch{Metadata: &metadata}); err != nil {
		logger.WarnCtx(ctx, "failed to flag query as cancelled, query_id: %d, error: %v", queryID, err)
	}

	finished, err := s.store.FinishQuery(ctx, queryID, model.QueryOutcome{
		Status:        model.QueryStatusFailed,
		FinalResponse: cancelledResponse,
		CompletedAt:   s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finish query: %w", err)
	}
	s.releaseLock(queryID)
	if finished == nil {
		return s.store.GetQuery(ctx, queryID)
	}

	s.record(ctx, nil, constants.ActionQueryCancelled,
		fmt.Sprintf("Query cancelled: %s...", truncate(query.Content, 50)))
	s.bus.Publish(constants.EventQueryFailed, finished)
	logger.InfoCtx(ctx, "query cancelled, query_id: %d", queryID)
	return finished, nil
}

func (s *Scheduler) startTasks(ctx context.Context, tasks []*model.Task) {
	for _, task := range tasks {
		if task.Status != model.TaskStatusPending {
			continue
		}
		now := s.now()
		started, err := s.store.TransitionTask(ctx, task.ID,
			[]model.TaskStatus{model.TaskStatusPending},
			model.TaskTransition{Status: model.TaskStatusInProgress, StartedAt: &now})
		if err != nil {
			logger.ErrorCtx(ctx, "failed to start task, task_id: %d, error: %v", task.ID, err)
			continue
		}
		if started == nil {
			continue
		}

		label, _, _ := strings.Cut(started.Description, ":")
		status := model.WorkerStatusActive
		worker := s.updateWorker(ctx, started.WorkerID, model.WorkerPatch{
			Status:           &status,
			CurrentTaskLabel: &label,
			Progress:         model.IntPtr(0),
		})
		if worker != nil {
			s.record(ctx, &worker.ID, constants.ActionTaskStarted,
				fmt.Sprintf("Started working on: %s...", truncate(started.Description, 50)))
		}
		s.bus.Publish(constants.EventTaskStarted, &TaskEventData{Task: started, Worker: worker})
	}
}

func (s *Scheduler) progressTasks(ctx context.Context, tasks []*model.Task) {
	for _, task := range tasks {
		if task.Status != model.TaskStatusInProgress || task.WorkerID == nil {
			continue
		}
		worker := s.updateWorker(ctx, task.WorkerID, model.WorkerPatch{
			Progress: model.IntPtr(narrative.Between(s.rnd, 40, 80)),
		})
		if worker == nil {
			continue
		}
		s.bus.Publish(constants.EventTaskProgressed, &TaskEventData{Task: task, Worker: worker})
	}
}

func (s *Scheduler) completeTasks(ctx context.Context, query *model.Query, tasks []*model.Task) {
	for _, task := range tasks {
		switch task.Status {
		case model.TaskStatusInProgress:
			s.completeTask(ctx, query, task)
		case model.TaskStatusPending:
			// never started; abandon so the query can finish
			s.failTask(ctx, query, task, "task was never started")
		}
	}
}

func (s *Scheduler) completeTask(ctx context.Context, query *model.Query, task *model.Task) {
	result, err := s.generate(query, task)
	if err != nil {
		logger.WarnCtx(ctx, "task result generation failed, task_id: %d, error: %v", task.ID, err)
		s.failTask(ctx, query, task, err.Error())
		return
	}

	completed, err := s.store.TransitionTask(ctx, task.ID,
		[]model.TaskStatus{model.TaskStatusInProgress},
		model.TaskTransition{
			Status:      model.TaskStatusCompleted,
			Result:      &result,
			CompletedAt: model.TimePtr(s.now()),
		})
	if err != nil {
		logger.ErrorCtx(ctx, "failed to complete task, task_id: %d, error: %v", task.ID, err)
		s.failTask(ctx, query, task, err.Error())
		return
	}
	if completed == nil {
		return
	}

	worker := s.releaseWorker(ctx, completed.WorkerID)
	if worker != nil {
		s.record(ctx, &worker.ID, constants.ActionTaskCompleted,
			fmt.Sprintf("Completed analysis for query: %s...", truncate(query.Content, 30)))
	}
	s.bus.Publish(constants.EventTaskCompleted, &TaskEventData{Task: completed, Worker: worker})
}

// failTask moves a non-terminal task to failed with a placeholder result
func (s *Scheduler) failTask(ctx context.Context, query *model.Query, task *model.Task, reason string) {
	placeholder := narrative.FailedResult(task.Metadata.WorkerName)
	failed, err := s.store.TransitionTask(ctx, task.ID,
		[]model.TaskStatus{model.TaskStatusPending, model.TaskStatusInProgress},
		model.TaskTransition{
			Status:      model.TaskStatusFailed,
			Result:      &placeholder,
			CompletedAt: model.TimePtr(s.now()),
			Error:       reason,
		})
	if err != nil {
		logger.ErrorCtx(ctx, "failed to fail task, task_id: %d, error: %v", task.ID, err)
		return
	}
	if failed == nil {
		return
	}

	var worker *model.Worker
	if task.Status == model.TaskStatusInProgress {
		worker = s.releaseWorker(ctx, failed.WorkerID)
	}
	if worker != nil {
		s.record(ctx, &worker.ID, constants.ActionTaskFailed,
			fmt.Sprintf("Failed analysis for query: %s...", truncate(query.Content, 30)))
	}
	s.bus.Publish(constants.EventTaskFailed, &TaskEventData{Task: failed, Worker: worker})
}

// generate produces a task result, converting formatter panics into errors
func (s *Scheduler) generate(query *model.Query, task *model.Task) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("result generation panicked: %v", r)
		}
	}()

	result, err = s.formatter.TaskResult(narrative.TaskInput{
		TaskType:   task.TaskType,
		WorkerName: task.Metadata.WorkerName,
		Query:      query.Content,
		Analysis:   query.Metadata.Analysis,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result) == "" {
		return "", narrative.ErrEmptyResult
	}
	return result, nil
}

// finalize synthesizes the final response once every task is terminal.
// Calling it again for a terminal query does nothing. An error means the
// query is still processing and the complete phase must run again.
func (s *Scheduler) finalize(ctx context.Context, queryID int64) error {
	query, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return fmt.Errorf("failed to get query for finalize: %w", err)
	}
	if query == nil || query.Status.IsTerminal() {
		return nil
	}

	tasks, err := s.store.ListTasksByQuery(ctx, queryID)
	if err != nil {
		return fmt.Errorf("failed to list tasks for finalize: %w", err)
	}
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			logger.WarnCtx(ctx, "finalize deferred, task still open, query_id: %d, task_id: %d", queryID, t.ID)
			return fmt.Errorf("%w: task %d is %s", ErrFinalizeDeferred, t.ID, t.Status)
		}
	}

	response, synthErr := s.synthesize(query, tasks)
	if synthErr != nil {
		logger.ErrorCtx(ctx, "synthesis failed, query_id: %d, error: %v", queryID, synthErr)
		failed, err := s.store.FinishQuery(ctx, queryID, model.QueryOutcome{
			Status:        model.QueryStatusFailed,
			FinalResponse: apologyResponse(synthErr),
			CompletedAt:   s.now(),
		})
		if err != nil {
			return fmt.Errorf("failed to mark query failed: %w", err)
		}
		if failed == nil {
			return nil
		}
		s.record(ctx, nil, constants.ActionQueryFailed,
			fmt.Sprintf("Query failed: %s...", truncate(query.Content, 50)))
		s.bus.Publish(constants.EventQueryFailed, failed)
		return nil
	}

	completed, err := s.store.FinishQuery(ctx, queryID, model.QueryOutcome{
		Status:        model.QueryStatusCompleted,
		FinalResponse: response,
		CompletedAt:   s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to complete query: %w", err)
	}
	if completed == nil {
		return nil
	}

	contributions := 0
	for _, t := range tasks {
		if t.Status == model.TaskStatusCompleted {
			contributions++
		}
	}
	if _, err := s.store.CreateResearch(ctx, &model.ResearchRecord{
		Title:    fmt.Sprintf("Query Analysis: %s...", truncate(query.Content, 50)),
		Content:  response,
		DataType: "analysis",
		Metadata: map[string]interface{}{
			"queryId":            queryID,
			"agentContributions": contributions,
			"completionTime":     completed.CompletedAt.UTC().Format(time.RFC3339),
		},
	}); err != nil {
		logger.ErrorCtx(ctx, "failed to file research record, query_id: %d, error: %v", queryID, err)
	}

	s.record(ctx, nil, constants.ActionQueryCompleted,
		fmt.Sprintf("Query completed: %s...", truncate(query.Content, 50)))
	s.bus.Publish(constants.EventQueryCompleted, completed)
	logger.InfoCtx(ctx, "query completed, query_id: %d, contributions: %d", queryID, contributions)
	return nil
}

func (s *Scheduler) synthesize(query *model.Query, tasks []*model.Task) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("synthesis panicked: %v", r)
		}
	}()
	return s.synthesizer.Synthesize(query, tasks)
}

// releaseWorker returns a worker to standby after its task ends
func (s *Scheduler) releaseWorker(ctx context.Context, workerID *int64) *model.Worker {
	status := model.WorkerStatusStandby
	return s.updateWorker(ctx, workerID, model.WorkerPatch{
		Status:           &status,
		CurrentTaskLabel: model.StringPtr(""),
		Progress:         model.IntPtr(100),
	})
}

// updateWorker patches a worker and publishes worker_updated.
// Returns nil when the worker no longer exists.
func (s *Scheduler) updateWorker(ctx context.Context, workerID *int64, patch model.WorkerPatch) *model.Worker {
	if workerID == nil {
		return nil
	}
	worker, err := s.store.UpdateWorker(ctx, *workerID, patch)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to update worker, worker_id: %d, error: %v", *workerID, err)
		return nil
	}
	if worker == nil {
		logger.DebugCtx(ctx, "worker no longer exists, worker_id: %d", *workerID)
		return nil
	}
	s.bus.Publish(constants.EventWorkerUpdated, worker)
	return worker
}

func (s *Scheduler) record(ctx context.Context, workerID *int64, action, description string) {
	if _, err := s.activity.Record(ctx, workerID, action, description); err != nil {
		logger.WarnCtx(ctx, "failed to record %s activity: %v", action, err)
	}
}

func (s *Scheduler) lockFor(queryID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[queryID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[queryID] = mu
	}
	return mu
}

// releaseLock forgets the mutex of a finished query
func (s *Scheduler) releaseLock(queryID int64) {
	s.locksMu.Lock()
	delete(s.locks, queryID)
	s.locksMu.Unlock()
}
