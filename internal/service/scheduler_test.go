package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"labswarm/internal/model"
	"labswarm/pkg/classifier"
	"labswarm/pkg/constants"
	"labswarm/pkg/interfaces"
	queuememory "labswarm/pkg/queue/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitQuery_ExplainQuantumEntanglement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)

	assert.Equal(t, model.QueryStatusProcessing, query.Status)
	assert.Equal(t, "user", query.UserID)
	assert.Equal(t, classifier.PriorityMedium, query.Priority)
	assert.Equal(t, classifier.TypeTheoretical, query.Metadata.Analysis.Type)
	assert.Contains(t, query.Metadata.Analysis.Domains, classifier.DomainQuantum)
	assert.Equal(t, []string{"Physicist Master", "Generalist-A1"}, query.AssignedWorkers)
	assert.Equal(t, 2, query.Metadata.TaskCount)
	require.NotNil(t, query.EstimatedCompletionAt)
	assert.WithinDuration(t, query.Metadata.StartTime.Add(6*time.Minute), *query.EstimatedCompletionAt, time.Second)

	require.Len(t, h.queue.jobs, 3)
	for i, phase := range interfaces.Phases {
		assert.Equal(t, interfaces.PhaseJob{QueryID: query.ID, Phase: phase}, h.queue.jobs[i])
	}
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 10 * time.Second}, h.queue.delays)

	withTasks, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	require.Len(t, withTasks.Tasks, 2)
	assert.Equal(t, model.TaskTypeAnalysis, withTasks.Tasks[0].TaskType)
	assert.Equal(t, "Theoretical physics analysis: Explain quantum entanglement", withTasks.Tasks[0].Description)
	assert.Equal(t, model.TaskTypeCalculation, withTasks.Tasks[1].TaskType)
	assert.Equal(t, "Supporting calculations and data processing: Explain quantum entanglement", withTasks.Tasks[1].Description)

	h.runAllPhases(t, query.ID)

	done, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, done.Query.Status)
	require.NotNil(t, done.Query.FinalResponse)
	assert.Contains(t, *done.Query.FinalResponse, "Explain quantum entanglement")
	assert.Contains(t, *done.Query.FinalResponse, "quantum mechanical")
	require.NotNil(t, done.Query.CompletedAt)
	for _, task := range done.Tasks {
		assert.Equal(t, model.TaskStatusCompleted, task.Status)
		require.NotNil(t, task.Result)
		assert.NotEmpty(t, *task.Result)
		assert.NotNil(t, task.StartedAt)
		assert.NotNil(t, task.CompletedAt)
	}

	physicist := h.workerByName(t, "Physicist Master")
	assert.Equal(t, model.WorkerStatusStandby, physicist.Status)
	assert.Nil(t, physicist.CurrentTaskLabel)
	assert.Equal(t, 100, physicist.Progress)

	research, err := h.store.ListResearch(ctx)
	require.NoError(t, err)
	require.Len(t, research, 1)
	assert.Equal(t, "analysis", research[0].DataType)
	assert.Equal(t, "Query Analysis: Explain quantum entanglement...", research[0].Title)
	assert.Equal(t, query.ID, research[0].Metadata["queryId"])
	assert.Equal(t, 2, research[0].Metadata["agentContributions"])

	assert.Equal(t, []string{
		constants.ActionQuerySubmitted,
		constants.ActionTaskStarted, constants.ActionTaskStarted,
		constants.ActionTaskCompleted, constants.ActionTaskCompleted,
		constants.ActionQueryCompleted,
	}, h.actions(t))

	assert.Len(t, h.eventsOf(constants.EventQueryStarted), 1)
	assert.Len(t, h.eventsOf(constants.EventTaskStarted), 2)
	assert.Len(t, h.eventsOf(constants.EventTaskProgressed), 2)
	assert.Len(t, h.eventsOf(constants.EventTaskCompleted), 2)
	completed := h.eventsOf(constants.EventQueryCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, model.QueryStatusCompleted, completed[0].Data.(*model.Query).Status)
}

func TestSubmitQuery_RejectsEmptyContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := h.queries.SubmitQuery(ctx, content, "alice")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}

	queries, err := h.queries.ListQueries(ctx)
	require.NoError(t, err)
	assert.Empty(t, queries)
	assert.Empty(t, h.queue.jobs)
	assert.Empty(t, h.eventsOf(constants.EventQueryStarted))
}

func TestSubmitQuery_KeepsRawContentAndUserID(t *testing.T) {
	h := newHarness(t)

	// padding counts toward length, so the raw text is medium while the trimmed one is simple
	content := "  Explain gravity" + strings.Repeat(" ", 40)
	query, err := h.queries.SubmitQuery(context.Background(), content, "alice")
	require.NoError(t, err)
	assert.Equal(t, content, query.Content)
	assert.Equal(t, "alice", query.UserID)
	assert.Equal(t, classifier.ComplexityMedium, query.Metadata.Analysis.Complexity)
}

func TestSubmitQuery_ScheduleFailureAbortsQuery(t *testing.T) {
	h := newHarness(t)
	h.queue.failWith = errors.New("queue unavailable")
	ctx := context.Background()

	_, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.Error(t, err)

	queries, err := h.queries.ListQueries(ctx)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, model.QueryStatusFailed, queries[0].Status)
}

func TestPhaseStart_MarksWorkersActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runPhase(t, query.ID, interfaces.PhaseStart)

	physicist := h.workerByName(t, "Physicist Master")
	assert.Equal(t, model.WorkerStatusActive, physicist.Status)
	require.NotNil(t, physicist.CurrentTaskLabel)
	assert.Equal(t, "Theoretical physics analysis", *physicist.CurrentTaskLabel)
	assert.Equal(t, 0, physicist.Progress)

	latest, err := h.activity.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Started working on: Supporting calculations and data processing: Expla...", latest[0].Description)

	// a second delivery of the same phase changes nothing
	h.runPhase(t, query.ID, interfaces.PhaseStart)
	assert.Len(t, h.eventsOf(constants.EventTaskStarted), 2)
}

func TestPhaseProgress_SetsProgressInRange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runPhase(t, query.ID, interfaces.PhaseStart)
	h.runPhase(t, query.ID, interfaces.PhaseProgress)

	for _, name := range []string{"Physicist Master", "Generalist-A1"} {
		w := h.workerByName(t, name)
		assert.GreaterOrEqual(t, w.Progress, 40)
		assert.LessOrEqual(t, w.Progress, 80)
	}
	progressed := h.eventsOf(constants.EventTaskProgressed)
	require.Len(t, progressed, 2)
	data := progressed[0].Data.(*TaskEventData)
	assert.Equal(t, model.TaskStatusInProgress, data.Task.Status)
	assert.NotNil(t, data.Worker)
}

func TestPhaseComplete_DeletedWorker(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runPhase(t, query.ID, interfaces.PhaseStart)

	physicist := h.workerByName(t, "Physicist Master")
	require.NoError(t, h.workers.DeleteWorker(ctx, physicist.ID))

	h.runPhase(t, query.ID, interfaces.PhaseProgress)
	h.runPhase(t, query.ID, interfaces.PhaseComplete)

	done, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, done.Query.Status)
	assert.Equal(t, model.TaskStatusCompleted, done.Tasks[0].Status)
	assert.Equal(t, physicist.ID, *done.Tasks[0].WorkerID)

	records, err := h.store.ListActivity(ctx, 0)
	require.NoError(t, err)
	for _, r := range records {
		if r.Action == constants.ActionTaskCompleted {
			require.NotNil(t, r.WorkerID)
			assert.NotEqual(t, physicist.ID, *r.WorkerID)
		}
	}

	var orphan *TaskEventData
	for _, e := range h.eventsOf(constants.EventTaskCompleted) {
		if d := e.Data.(*TaskEventData); d.Task.ID == done.Tasks[0].ID {
			orphan = d
		}
	}
	require.NotNil(t, orphan)
	assert.Nil(t, orphan.Worker)
}

func TestPhaseComplete_ZeroResolvableWorkers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Calculate 2+2", "")
	require.NoError(t, err)
	assert.Empty(t, query.AssignedWorkers)
	assert.Equal(t, 0, query.Metadata.TaskCount)

	h.runAllPhases(t, query.ID)

	done, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Empty(t, done.Tasks)
	assert.Equal(t, model.QueryStatusCompleted, done.Query.Status)
	assert.Contains(t, *done.Query.FinalResponse, "No worker contributed")
}

func TestPhaseComplete_MissingSpecialistIsSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.workers.DeleteWorker(ctx, h.workerByName(t, "Physicist Master").ID))

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Generalist-A1"}, query.AssignedWorkers)
	assert.Equal(t, 1, query.Metadata.TaskCount)
}

func TestPhaseComplete_TaskFailureStillCompletesQuery(t *testing.T) {
	for name, opt := range map[string]harnessOption{
		"formatter error": withFormatter(failingFormatter{err: errors.New("template missing")}),
		"formatter panic": withFormatter(panickingFormatter{}),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, opt)
			ctx := context.Background()

			query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
			require.NoError(t, err)
			h.runAllPhases(t, query.ID)

			done, err := h.queries.GetQuery(ctx, query.ID)
			require.NoError(t, err)
			assert.Equal(t, model.QueryStatusCompleted, done.Query.Status)
			for _, task := range done.Tasks {
				assert.Equal(t, model.TaskStatusFailed, task.Status)
				require.NotNil(t, task.Result)
				assert.Contains(t, *task.Result, "could not complete")
				assert.NotEmpty(t, task.Metadata.Error)
			}
			assert.Len(t, h.eventsOf(constants.EventTaskFailed), 2)
			assert.Contains(t, h.actions(t), constants.ActionTaskFailed)
			assert.Equal(t, model.WorkerStatusStandby, h.workerByName(t, "Physicist Master").Status)
		})
	}
}

func TestPhaseComplete_SynthesisFailureFailsQuery(t *testing.T) {
	h := newHarness(t, withSynthesizer(failingSynthesizer{}))
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runAllPhases(t, query.ID)

	done, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusFailed, done.Query.Status)
	require.NotNil(t, done.Query.FinalResponse)
	assert.Contains(t, *done.Query.FinalResponse, "sorry")
	assert.NotNil(t, done.Query.CompletedAt)
	assert.Len(t, h.eventsOf(constants.EventQueryFailed), 1)
	assert.Empty(t, h.eventsOf(constants.EventQueryCompleted))

	research, err := h.store.ListResearch(ctx)
	require.NoError(t, err)
	assert.Empty(t, research)
}

func TestPhaseComplete_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runAllPhases(t, query.ID)

	first, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, phase := range interfaces.Phases {
				_ = h.scheduler.HandlePhase(ctx, interfaces.PhaseJob{QueryID: query.ID, Phase: phase})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, h.scheduler.finalize(ctx, query.ID))

	again, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.Query.FinalResponse, *again.Query.FinalResponse)
	assert.Equal(t, first.Query.CompletedAt, again.Query.CompletedAt)

	research, err := h.store.ListResearch(ctx)
	require.NoError(t, err)
	assert.Len(t, research, 1)
	assert.Len(t, h.eventsOf(constants.EventQueryCompleted), 1)
	assert.Len(t, h.eventsOf(constants.EventTaskCompleted), 2)
}

func TestPhaseComplete_AbandonsUnstartedTasks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runPhase(t, query.ID, interfaces.PhaseComplete)

	done, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, done.Query.Status)
	for _, task := range done.Tasks {
		assert.Equal(t, model.TaskStatusFailed, task.Status)
		assert.Nil(t, task.StartedAt)
	}
}

func TestHandlePhase_UnknownQueryIsNoop(t *testing.T) {
	h := newHarness(t)
	for _, phase := range interfaces.Phases {
		assert.NoError(t, h.scheduler.HandlePhase(context.Background(), interfaces.PhaseJob{QueryID: 999, Phase: phase}))
	}
}

func TestHandlePhase_UnknownPhase(t *testing.T) {
	h := newHarness(t)
	query, err := h.queries.SubmitQuery(context.Background(), "Explain gravity", "")
	require.NoError(t, err)

	err = h.scheduler.HandlePhase(context.Background(), interfaces.PhaseJob{QueryID: query.ID, Phase: "rewind"})
	assert.Error(t, err)
}

func TestCancelQuery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runPhase(t, query.ID, interfaces.PhaseStart)

	cancelled, err := h.queries.CancelQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusFailed, cancelled.Status)
	assert.True(t, cancelled.Metadata.Cancelled)
	assert.Equal(t, cancelledResponse, *cancelled.FinalResponse)
	assert.Equal(t, []int64{query.ID}, h.queue.cancelled)

	done, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	for _, task := range done.Tasks {
		assert.Equal(t, model.TaskStatusFailed, task.Status)
		assert.Equal(t, "cancelled", task.Metadata.Error)
	}
	assert.Equal(t, model.WorkerStatusStandby, h.workerByName(t, "Physicist Master").Status)
	assert.Contains(t, h.actions(t), constants.ActionQueryCancelled)
	assert.Len(t, h.eventsOf(constants.EventQueryFailed), 1)

	// late phases are ignored
	h.runPhase(t, query.ID, interfaces.PhaseComplete)
	after, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusFailed, after.Query.Status)

	_, err = h.queries.CancelQuery(ctx, query.ID)
	assert.ErrorIs(t, err, ErrQueryFinished)

	_, err = h.queries.CancelQuery(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetQuery_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.queries.GetQuery(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveQueries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.queries.SubmitQuery(ctx, "Explain gravity", "")
	require.NoError(t, err)
	second, err := h.queries.SubmitQuery(ctx, "Explain tesla coils", "")
	require.NoError(t, err)
	h.runAllPhases(t, first.ID)

	active, err := h.queries.ListActiveQueries(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	all, err := h.queries.ListQueries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestConcurrentQueries_ConvergeIndependently(t *testing.T) {
	queue := queuememory.NewQueue()
	t.Cleanup(queue.Stop)
	h := newHarness(t, withQueue(queue, PhaseDelays{
		Start:    5 * time.Millisecond,
		Progress: 15 * time.Millisecond,
		Complete: 30 * time.Millisecond,
	}))
	require.NoError(t, queue.Start(h.scheduler.HandlePhase))
	ctx := context.Background()

	contents := []string{"Explain quantum entanglement", "Search the literature on superconductor materials"}
	ids := make([]int64, len(contents))
	var wg sync.WaitGroup
	for i, content := range contents {
		wg.Add(1)
		go func(i int, content string) {
			defer wg.Done()
			q, err := h.queries.SubmitQuery(ctx, content, fmt.Sprintf("user-%d", i))
			if assert.NoError(t, err) {
				ids[i] = q.ID
			}
		}(i, content)
	}
	wg.Wait()
	require.NotEqual(t, ids[0], ids[1])

	assert.Eventually(t, func() bool {
		active, err := h.queries.ListActiveQueries(ctx)
		return err == nil && len(active) == 0
	}, 2*time.Second, 10*time.Millisecond)

	responses := make([]string, len(ids))
	for i, id := range ids {
		done, err := h.queries.GetQuery(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.QueryStatusCompleted, done.Query.Status)
		assert.Equal(t, len(done.Query.AssignedWorkers), len(done.Tasks))
		for _, task := range done.Tasks {
			assert.Equal(t, id, task.QueryID)
			assert.True(t, strings.HasSuffix(task.Description, contents[i]))
		}
		require.NotNil(t, done.Query.FinalResponse)
		assert.Contains(t, *done.Query.FinalResponse, contents[i])
		responses[i] = *done.Query.FinalResponse
	}
	assert.NotEqual(t, responses[0], responses[1])
}

func TestPhaseComplete_StoreErrorFailsTask(t *testing.T) {
	flaky := &flakyStore{targets: map[model.TaskStatus]bool{model.TaskStatusCompleted: true}, failures: 1}
	h := newHarness(t, withSchedulerStore(func(s interfaces.Store) interfaces.Store {
		flaky.Store = s
		return flaky
	}))
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runAllPhases(t, query.ID)

	got, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, got.Query.Status)
	require.Len(t, got.Tasks, 2)

	assert.Equal(t, model.TaskStatusFailed, got.Tasks[0].Status)
	assert.Contains(t, got.Tasks[0].Metadata.Error, "deadlock")
	require.NotNil(t, got.Tasks[0].Result)
	assert.Equal(t, model.TaskStatusCompleted, got.Tasks[1].Status)

	assert.Equal(t, model.WorkerStatusStandby, h.workerByName(t, constants.WorkerPhysicistMaster).Status)
	assert.Len(t, h.eventsOf(constants.EventTaskFailed), 1)
	assert.Len(t, h.eventsOf(constants.EventQueryCompleted), 1)
}

func TestPhaseComplete_RetriedUntilTasksSettle(t *testing.T) {
	flaky := &flakyStore{
		targets:  map[model.TaskStatus]bool{model.TaskStatusCompleted: true, model.TaskStatusFailed: true},
		failures: 2,
	}
	h := newHarness(t, withSchedulerStore(func(s interfaces.Store) interfaces.Store {
		flaky.Store = s
		return flaky
	}))
	ctx := context.Background()

	query, err := h.queries.SubmitQuery(ctx, "Explain quantum entanglement", "")
	require.NoError(t, err)
	h.runPhase(t, query.ID, interfaces.PhaseStart)
	h.runPhase(t, query.ID, interfaces.PhaseProgress)

	// both the completion and its failure fallback hit the store error
	err = h.scheduler.HandlePhase(ctx, interfaces.PhaseJob{QueryID: query.ID, Phase: interfaces.PhaseComplete})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFinalizeDeferred)

	pending, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusProcessing, pending.Query.Status)
	assert.Equal(t, model.TaskStatusInProgress, pending.Tasks[0].Status)
	assert.Equal(t, model.TaskStatusCompleted, pending.Tasks[1].Status)
	assert.Empty(t, h.eventsOf(constants.EventQueryCompleted))

	// redelivery of the complete phase settles the query
	h.runPhase(t, query.ID, interfaces.PhaseComplete)

	done, err := h.queries.GetQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, done.Query.Status)
	for _, task := range done.Tasks {
		assert.Equal(t, model.TaskStatusCompleted, task.Status)
	}
	assert.Equal(t, model.WorkerStatusStandby, h.workerByName(t, constants.WorkerPhysicistMaster).Status)
	assert.Len(t, h.eventsOf(constants.EventQueryCompleted), 1)
}
