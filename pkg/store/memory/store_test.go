package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"labswarm/internal/model"
	"labswarm/pkg/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorker(name string) *model.Worker {
	return &model.Worker{
		Name:         name,
		Kind:         model.WorkerKindGeneralist,
		Status:       model.WorkerStatusStandby,
		Capabilities: []string{"general_analysis"},
	}
}

func TestStore_WorkerCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a, err := s.CreateWorker(ctx, newWorker("A"))
	require.NoError(t, err)
	b, err := s.CreateWorker(ctx, newWorker("B"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := s.GetWorkerByName(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	missing, err := s.GetWorkerByName(ctx, "C")
	require.NoError(t, err)
	assert.Nil(t, missing)

	updated, err := s.UpdateWorker(ctx, a.ID, model.WorkerPatch{
		Status:           statusPtr(model.WorkerStatusActive),
		CurrentTaskLabel: model.StringPtr("Theoretical physics analysis"),
		Progress:         model.IntPtr(140),
	})
	require.NoError(t, err)
	assert.Equal(t, model.WorkerStatusActive, updated.Status)
	assert.Equal(t, 100, updated.Progress)
	require.NotNil(t, updated.CurrentTaskLabel)

	cleared, err := s.UpdateWorker(ctx, a.ID, model.WorkerPatch{CurrentTaskLabel: model.StringPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.CurrentTaskLabel)

	unknown, err := s.UpdateWorker(ctx, 99, model.WorkerPatch{Progress: model.IntPtr(1)})
	require.NoError(t, err)
	assert.Nil(t, unknown)

	require.NoError(t, s.DeleteWorker(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteWorker(ctx, a.ID), interfaces.ErrNotFound)

	all, err := s.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].Name)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	created, err := s.CreateWorker(ctx, newWorker("A"))
	require.NoError(t, err)
	created.Name = "mutated"
	created.Capabilities[0] = "mutated"

	got, err := s.GetWorker(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, []string{"general_analysis"}, got.Capabilities)
}

func TestStore_QueriesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 3; i++ {
		_, err := s.CreateQuery(ctx, &model.Query{Content: fmt.Sprintf("q%d", i), Status: model.QueryStatusProcessing})
		require.NoError(t, err)
	}
	_, err := s.FinishQuery(ctx, 2, model.QueryOutcome{Status: model.QueryStatusCompleted, FinalResponse: "done"})
	require.NoError(t, err)

	all, err := s.ListQueries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	active, err := s.ListActiveQueries(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(3), active[0].ID)
	assert.Equal(t, int64(1), active[1].ID)
}

func TestStore_FinishQueryOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	q, err := s.CreateQuery(ctx, &model.Query{Content: "q", Status: model.QueryStatusProcessing})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			done, err := s.FinishQuery(ctx, q.ID, model.QueryOutcome{
				Status:        model.QueryStatusCompleted,
				FinalResponse: fmt.Sprintf("response %d", i),
			})
			assert.NoError(t, err)
			if done != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	got, err := s.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	unknown, err := s.FinishQuery(ctx, 42, model.QueryOutcome{Status: model.QueryStatusFailed})
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestStore_TransitionTaskGuard(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	task, err := s.CreateTask(ctx, &model.Task{QueryID: 1, Status: model.TaskStatusPending, Description: "d"})
	require.NoError(t, err)

	// completing straight from pending is rejected
	skipped, err := s.TransitionTask(ctx, task.ID, []model.TaskStatus{model.TaskStatusInProgress},
		model.TaskTransition{Status: model.TaskStatusCompleted})
	require.NoError(t, err)
	assert.Nil(t, skipped)

	started, err := s.TransitionTask(ctx, task.ID, []model.TaskStatus{model.TaskStatusPending},
		model.TaskTransition{Status: model.TaskStatusInProgress})
	require.NoError(t, err)
	require.NotNil(t, started)
	assert.Equal(t, model.TaskStatusInProgress, started.Status)

	done, err := s.TransitionTask(ctx, task.ID, []model.TaskStatus{model.TaskStatusInProgress},
		model.TaskTransition{Status: model.TaskStatusCompleted, Result: model.StringPtr("result")})
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, "result", *done.Result)

	// terminal tasks never move again
	again, err := s.TransitionTask(ctx, task.ID, []model.TaskStatus{model.TaskStatusPending, model.TaskStatusInProgress},
		model.TaskTransition{Status: model.TaskStatusFailed})
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestStore_TasksInCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 3; i++ {
		_, err := s.CreateTask(ctx, &model.Task{QueryID: 7, Description: fmt.Sprintf("t%d", i)})
		require.NoError(t, err)
		_, err = s.CreateTask(ctx, &model.Task{QueryID: 8})
		require.NoError(t, err)
	}

	tasks, err := s.ListTasksByQuery(ctx, 7)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		assert.Equal(t, fmt.Sprintf("t%d", i), task.Description)
	}

	none, err := s.ListTasksByQuery(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ActivityLatestUnderConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendActivity(ctx, &model.ActivityRecord{Action: "a", Description: fmt.Sprint(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	latest, err := s.ListActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, latest, 10)
	for i, r := range latest {
		assert.Equal(t, int64(50-i), r.ID)
	}

	all, err := s.ListActivity(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestStore_ResearchMetricsChat(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	latest, err := s.LatestMetrics(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = s.RecordMetrics(ctx, &model.SystemMetrics{CPUUsage: 34})
	require.NoError(t, err)
	_, err = s.RecordMetrics(ctx, &model.SystemMetrics{CPUUsage: 40})
	require.NoError(t, err)
	latest, err = s.LatestMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, latest.CPUUsage)
	assert.Equal(t, int64(2), latest.ID)

	_, err = s.CreateResearch(ctx, &model.ResearchRecord{Title: "first", Metadata: map[string]interface{}{"queryId": int64(1)}})
	require.NoError(t, err)
	_, err = s.CreateResearch(ctx, &model.ResearchRecord{Title: "second"})
	require.NoError(t, err)
	research, err := s.ListResearch(ctx)
	require.NoError(t, err)
	require.Len(t, research, 2)
	assert.Equal(t, "second", research[0].Title)

	_, err = s.AppendChatMessage(ctx, &model.ChatMessage{Sender: model.ChatSenderUser, Content: "hi"})
	require.NoError(t, err)
	_, err = s.AppendChatMessage(ctx, &model.ChatMessage{Sender: model.ChatSenderSystem, Content: "hello"})
	require.NoError(t, err)
	chat, err := s.ListChatMessages(ctx)
	require.NoError(t, err)
	require.Len(t, chat, 2)
	assert.Equal(t, "hi", chat[0].Content)
}

func statusPtr(s model.WorkerStatus) *model.WorkerStatus {
	return &s
}

func TestStore_TransitionTaskRejectsBackwardMove(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	task, err := s.CreateTask(ctx, &model.Task{QueryID: 1, Status: model.TaskStatusInProgress, Description: "d"})
	require.NoError(t, err)

	// the from guard matches, but in_progress cannot go back to pending
	moved, err := s.TransitionTask(ctx, task.ID, []model.TaskStatus{model.TaskStatusInProgress},
		model.TaskTransition{Status: model.TaskStatusPending})
	require.NoError(t, err)
	assert.Nil(t, moved)

	current, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, current.Status)
}

func TestStore_AdvanceWorkerProgress(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	w, err := s.CreateWorker(ctx, &model.Worker{Name: "A", Kind: model.WorkerKindGeneralist, Status: model.WorkerStatusActive, Progress: 95})
	require.NoError(t, err)

	advanced, err := s.AdvanceWorkerProgress(ctx, w.ID, model.WorkerStatusActive, 10)
	require.NoError(t, err)
	require.NotNil(t, advanced)
	assert.Equal(t, 100, advanced.Progress)

	// already complete
	again, err := s.AdvanceWorkerProgress(ctx, w.ID, model.WorkerStatusActive, 10)
	require.NoError(t, err)
	assert.Nil(t, again)

	// status changed since the caller looked
	_, err = s.UpdateWorker(ctx, w.ID, model.WorkerPatch{Progress: model.IntPtr(10)})
	require.NoError(t, err)
	standby, err := s.AdvanceWorkerProgress(ctx, w.ID, model.WorkerStatusStandby, 5)
	require.NoError(t, err)
	assert.Nil(t, standby)

	unknown, err := s.AdvanceWorkerProgress(ctx, 999, model.WorkerStatusActive, 5)
	require.NoError(t, err)
	assert.Nil(t, unknown)

	current, err := s.GetWorker(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, current.Progress)
}
