package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"labswarm/internal/model"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/narrative"
	"labswarm/pkg/store/memory"

	"github.com/stretchr/testify/require"
)

// recordingQueue captures scheduled jobs instead of delivering them
type recordingQueue struct {
	mu        sync.Mutex
	jobs      []interfaces.PhaseJob
	delays    []time.Duration
	cancelled []int64
	failWith  error
}

func (q *recordingQueue) Schedule(_ context.Context, job interfaces.PhaseJob, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failWith != nil {
		return q.failWith
	}
	q.jobs = append(q.jobs, job)
	q.delays = append(q.delays, delay)
	return nil
}

func (q *recordingQueue) CancelQuery(_ context.Context, queryID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, queryID)
	return nil
}

func (q *recordingQueue) Start(interfaces.PhaseHandler) error { return nil }
func (q *recordingQueue) Stop()                               {}

// stubRandom always draws the lowest value
type stubRandom struct{}

func (stubRandom) Intn(int) int     { return 0 }
func (stubRandom) Float64() float64 { return 0.99 }

type failingFormatter struct{ err error }

func (f failingFormatter) TaskResult(narrative.TaskInput) (string, error) { return "", f.err }

type panickingFormatter struct{}

func (panickingFormatter) TaskResult(narrative.TaskInput) (string, error) { panic("template exploded") }

type failingSynthesizer struct{}

func (failingSynthesizer) Synthesize(*model.Query, []*model.Task) (string, error) {
	return "", errors.New("no findings to combine")
}

// flakyStore fails the next failures task transitions whose target is in targets
type flakyStore struct {
	interfaces.Store

	mu       sync.Mutex
	targets  map[model.TaskStatus]bool
	failures int
}

func (s *flakyStore) TransitionTask(ctx context.Context, id int64, from []model.TaskStatus, tr model.TaskTransition) (*model.Task, error) {
	s.mu.Lock()
	if s.targets[tr.Status] && s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, errors.New("deadlock found when trying to get lock")
	}
	s.mu.Unlock()
	return s.Store.TransitionTask(ctx, id, from, tr)
}

var testDelays = PhaseDelays{Start: time.Second, Progress: 5 * time.Second, Complete: 10 * time.Second}

type harness struct {
	store     *memory.Store
	bus       *eventbus.Bus
	queue     *recordingQueue
	activity  *ActivityService
	workers   *WorkerService
	scheduler *Scheduler
	queries   *QueryService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	formatter   narrative.Formatter
	synthesizer Synthesizer
	queue       interfaces.PhaseQueue
	delays      PhaseDelays
	wrapStore   func(interfaces.Store) interfaces.Store
}

func withFormatter(f narrative.Formatter) harnessOption {
	return func(c *harnessConfig) { c.formatter = f }
}

func withSynthesizer(s Synthesizer) harnessOption {
	return func(c *harnessConfig) { c.synthesizer = s }
}

// withSchedulerStore routes the scheduler's store calls through wrap
func withSchedulerStore(wrap func(interfaces.Store) interfaces.Store) harnessOption {
	return func(c *harnessConfig) { c.wrapStore = wrap }
}

func withQueue(q interfaces.PhaseQueue, delays PhaseDelays) harnessOption {
	return func(c *harnessConfig) {
		c.queue = q
		c.delays = delays
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	rnd := narrative.NewRandom(42)
	rq := &recordingQueue{}
	cfg := &harnessConfig{
		formatter:   narrative.NewTemplateFormatter(rnd),
		synthesizer: NewReportSynthesizer(rnd),
		queue:       rq,
		delays:      testDelays,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := memory.NewStore()
	bus := eventbus.New(256, 1000)
	t.Cleanup(bus.Close)

	activity := NewActivityService(store, bus)
	workers := NewWorkerService(store, activity, bus)
	var schedulerStore interfaces.Store = store
	if cfg.wrapStore != nil {
		schedulerStore = cfg.wrapStore(store)
	}
	scheduler := NewScheduler(schedulerStore, cfg.queue, bus, activity, cfg.formatter, cfg.synthesizer, rnd, cfg.delays)
	queries := NewQueryService(store, scheduler, activity, bus, "user")

	_, err := workers.SeedDefaults(context.Background())
	require.NoError(t, err)

	return &harness{
		store:     store,
		bus:       bus,
		queue:     rq,
		activity:  activity,
		workers:   workers,
		scheduler: scheduler,
		queries:   queries,
	}
}

func (h *harness) runPhase(t *testing.T, queryID int64, phase interfaces.Phase) {
	t.Helper()
	require.NoError(t, h.scheduler.HandlePhase(context.Background(), interfaces.PhaseJob{QueryID: queryID, Phase: phase}))
}

func (h *harness) runAllPhases(t *testing.T, queryID int64) {
	t.Helper()
	for _, phase := range interfaces.Phases {
		h.runPhase(t, queryID, phase)
	}
}

func (h *harness) workerByName(t *testing.T, name string) *model.Worker {
	t.Helper()
	w, err := h.store.GetWorkerByName(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w
}

// eventsOf returns the published events of type et in publication order
func (h *harness) eventsOf(et constants.EventType) []eventbus.Event {
	all, _ := h.bus.Since(0, 1000)
	out := make([]eventbus.Event, 0)
	for _, e := range all {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) actions(t *testing.T) []string {
	t.Helper()
	records, err := h.store.ListActivity(context.Background(), 0)
	require.NoError(t, err)
	out := make([]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i].Action)
	}
	return out
}
