// Package asynq delivers delayed pipeline phases through asynq scheduled tasks on Redis,
// so pending phases survive a process restart.
package asynq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"labswarm/pkg/config"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypePhase = "query:phase"
)

var _ interfaces.PhaseQueue = (*Manager)(nil)

// Manager asynq backed interfaces.PhaseQueue
type Manager struct {
	client    *asynq.Client
	server    *asynq.Server
	inspector *asynq.Inspector
	mux       *asynq.ServeMux
	queue     string
	maxRetry  int

	mu      sync.Mutex
	started bool
}

// NewManager creates queue manager
func NewManager(cfg *config.Config) (*Manager, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	return newManager(redisOpt, cfg.Queue), nil
}

func newManager(redisOpt asynq.RedisClientOpt, qc config.QueueConfig) *Manager {
	retryDelay := qc.RetryDelay
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: qc.Concurrency,
			Queues: map[string]int{
				qc.Name: 10,
			},
			RetryDelayFunc: func(int, error, *asynq.Task) time.Duration {
				return retryDelay
			},
			Logger:   asynqLogger{},
			LogLevel: asynq.WarnLevel,
		},
	)

	return &Manager{
		client:    asynq.NewClient(redisOpt),
		server:    server,
		inspector: asynq.NewInspector(redisOpt),
		mux:       asynq.NewServeMux(),
		queue:     qc.Name,
		maxRetry:  qc.MaxRetry,
	}
}

// Schedule implements interfaces.PhaseQueue
func (m *Manager) Schedule(ctx context.Context, job interfaces.PhaseJob, delay time.Duration) error {
	task, err := newPhaseTask(job)
	if err != nil {
		return err
	}
	opts := m.taskOptions(job, delay)

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// replace the pending job with the new schedule
		if delErr := m.inspector.DeleteTask(m.queue, job.Key()); delErr != nil && !errors.Is(delErr, asynq.ErrTaskNotFound) {
			return fmt.Errorf("failed to replace phase job %s: %w", job.Key(), delErr)
		}
		info, err = m.client.EnqueueContext(ctx, task, opts...)
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue phase job %s: %w", job.Key(), err)
	}

	logger.DebugCtx(ctx, "phase job scheduled, task_id: %s, queue: %s, process_at: %s",
		info.ID, info.Queue, info.NextProcessAt.Format(time.RFC3339))
	return nil
}

// taskOptions keys the task by job so a phase is enqueued at most once
func (m *Manager) taskOptions(job interfaces.PhaseJob, delay time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.TaskID(job.Key()),
		asynq.Queue(m.queue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(m.maxRetry),
	}
}

// CancelQuery implements interfaces.PhaseQueue
func (m *Manager) CancelQuery(ctx context.Context, queryID int64) error {
	for _, phase := range interfaces.Phases {
		key := interfaces.PhaseJob{QueryID: queryID, Phase: phase}.Key()
		err := m.inspector.DeleteTask(m.queue, key)
		if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
			// an already running phase cannot be deleted; the handler sees the terminal query
			logger.WarnCtx(ctx, "failed to cancel phase job %s: %v", key, err)
		}
	}
	logger.InfoCtx(ctx, "phase jobs cancelled, query_id: %d", queryID)
	return nil
}

// Start implements interfaces.PhaseQueue
func (m *Manager) Start(handler interfaces.PhaseHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	m.mux.HandleFunc(TypePhase, func(ctx context.Context, task *asynq.Task) error {
		job, err := decodePhase(task)
		if err != nil {
			return err
		}
		// phases are idempotent; a failed one is redelivered up to maxRetry times
		return handler(ctx, job)
	})

	logger.InfoCtx(context.Background(), "starting phase queue server, queue: %s", m.queue)
	if err := m.server.Start(m.mux); err != nil {
		return fmt.Errorf("failed to start phase queue server: %w", err)
	}
	m.started = true
	return nil
}

func newPhaseTask(job interfaces.PhaseJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal phase job: %w", err)
	}
	return asynq.NewTask(TypePhase, payload), nil
}

func decodePhase(task *asynq.Task) (interfaces.PhaseJob, error) {
	var job interfaces.PhaseJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return job, fmt.Errorf("invalid phase payload: %v: %w", err, asynq.SkipRetry)
	}
	if job.QueryID <= 0 || job.Phase == "" {
		return job, fmt.Errorf("incomplete phase payload %q: %w", task.Payload(), asynq.SkipRetry)
	}
	return job, nil
}

// Stop implements interfaces.PhaseQueue. Scheduled jobs stay in Redis.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.InfoCtx(context.Background(), "stopping phase queue server")
	if m.started {
		m.server.Stop()
		m.server.Shutdown()
		m.started = false
	}
	if err := m.inspector.Close(); err != nil {
		logger.WarnCtx(context.Background(), "failed to close queue inspector: %v", err)
	}
	if err := m.client.Close(); err != nil {
		logger.WarnCtx(context.Background(), "failed to close queue client: %v", err)
	}
}

// PendingCount number of phase jobs waiting in Redis
func (m *Manager) PendingCount() (int, error) {
	info, err := m.inspector.GetQueueInfo(m.queue)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return info.Pending + info.Scheduled, nil
}

// asynqLogger routes asynq's own logs through the service logger
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) {
	logger.DebugCtx(context.Background(), "asynq: %s", fmt.Sprint(args...))
}

func (asynqLogger) Info(args ...interface{}) {
	logger.InfoCtx(context.Background(), "asynq: %s", fmt.Sprint(args...))
}

func (asynqLogger) Warn(args ...interface{}) {
	logger.WarnCtx(context.Background(), "asynq: %s", fmt.Sprint(args...))
}

func (asynqLogger) Error(args ...interface{}) {
	logger.ErrorCtx(context.Background(), "asynq: %s", fmt.Sprint(args...))
}

func (asynqLogger) Fatal(args ...interface{}) {
	logger.FatalCtx(context.Background(), "asynq: %s", fmt.Sprint(args...))
}
