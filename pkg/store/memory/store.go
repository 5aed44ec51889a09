// Package memory keeps every laboratory collection in process memory.
// Records handed in and out are copies, so callers never share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"labswarm/internal/model"
	"labswarm/pkg/interfaces"
)

var _ interfaces.Store = (*Store)(nil)

// Store in-memory implementation of interfaces.Store
type Store struct {
	workerMu     sync.RWMutex
	workers      map[int64]*model.Worker
	nextWorkerID int64

	queryMu     sync.RWMutex
	queries     map[int64]*model.Query
	nextQueryID int64

	taskMu       sync.RWMutex
	tasks        map[int64]*model.Task
	tasksByQuery map[int64][]int64
	nextTaskID   int64

	activityMu     sync.RWMutex
	activity       []*model.ActivityRecord
	nextActivityID int64

	researchMu     sync.RWMutex
	research       []*model.ResearchRecord
	nextResearchID int64

	metricsMu     sync.RWMutex
	metrics       []*model.SystemMetrics
	nextMetricsID int64

	chatMu     sync.RWMutex
	chat       []*model.ChatMessage
	nextChatID int64

	now func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		workers:      make(map[int64]*model.Worker),
		queries:      make(map[int64]*model.Query),
		tasks:        make(map[int64]*model.Task),
		tasksByQuery: make(map[int64][]int64),
		activity:     make([]*model.ActivityRecord, 0, 128),
		now:          time.Now,
	}
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// ---- workers ----

func (s *Store) CreateWorker(_ context.Context, worker *model.Worker) (*model.Worker, error) {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	s.nextWorkerID++
	w := worker.Clone()
	w.ID = s.nextWorkerID
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now()
	}
	if w.Capabilities == nil {
		w.Capabilities = []string{}
	}
	s.workers[w.ID] = w
	return w.Clone(), nil
}

func (s *Store) GetWorker(_ context.Context, id int64) (*model.Worker, error) {
	s.workerMu.RLock()
	defer s.workerMu.RUnlock()
	return s.workers[id].Clone(), nil
}

func (s *Store) GetWorkerByName(_ context.Context, name string) (*model.Worker, error) {
	s.workerMu.RLock()
	defer s.workerMu.RUnlock()

	// lowest id wins when names collide
	var found *model.Worker
	for _, w := range s.workers {
		if w.Name == name && (found == nil || w.ID < found.ID) {
			found = w
		}
	}
	return found.Clone(), nil
}

func (s *Store) ListWorkers(_ context.Context) ([]*model.Worker, error) {
	s.workerMu.RLock()
	defer s.workerMu.RUnlock()

	out := make([]*model.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, w.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateWorker(_ context.Context, id int64, patch model.WorkerPatch) (*model.Worker, error) {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	w, ok := s.workers[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(w)
	return w.Clone(), nil
}

func (s *Store) AdvanceWorkerProgress(_ context.Context, id int64, status model.WorkerStatus, delta int) (*model.Worker, error) {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	w, ok := s.workers[id]
	if !ok || !w.Advance(status, delta) {
		return nil, nil
	}
	return w.Clone(), nil
}

func (s *Store) DeleteWorker(_ context.Context, id int64) error {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	if _, ok := s.workers[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(s.workers, id)
	return nil
}

// ---- queries ----

func (s *Store) CreateQuery(_ context.Context, query *model.Query) (*model.Query, error) {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()

	s.nextQueryID++
	q := query.Clone()
	q.ID = s.nextQueryID
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	if q.AssignedWorkers == nil {
		q.AssignedWorkers = []string{}
	}
	s.queries[q.ID] = q
	return q.Clone(), nil
}

func (s *Store) GetQuery(_ context.Context, id int64) (*model.Query, error) {
	s.queryMu.RLock()
	defer s.queryMu.RUnlock()
	return s.queries[id].Clone(), nil
}

func (s *Store) ListQueries(_ context.Context) ([]*model.Query, error) {
	return s.listQueries(func(*model.Query) bool { return true }), nil
}

func (s *Store) ListActiveQueries(_ context.Context) ([]*model.Query, error) {
	return s.listQueries(func(q *model.Query) bool {
		return q.Status == model.QueryStatusProcessing
	}), nil
}

func (s *Store) listQueries(keep func(*model.Query) bool) []*model.Query {
	s.queryMu.RLock()
	defer s.queryMu.RUnlock()

	out := make([]*model.Query, 0, len(s.queries))
	for _, q := range s.queries {
		if keep(q) {
			out = append(out, q.Clone())
		}
	}
	// newest first; ids break creation time ties
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) UpdateQuery(_ context.Context, id int64, patch model.QueryPatch) (*model.Query, error) {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()

	q, ok := s.queries[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(q)
	return q.Clone(), nil
}

func (s *Store) FinishQuery(_ context.Context, id int64, outcome model.QueryOutcome) (*model.Query, error) {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()

	q, ok := s.queries[id]
	if !ok || q.Status != model.QueryStatusProcessing {
		return nil, nil
	}
	q.Status = outcome.Status
	q.FinalResponse = model.StringPtr(outcome.FinalResponse)
	q.CompletedAt = model.TimePtr(outcome.CompletedAt)
	return q.Clone(), nil
}

// ---- tasks ----

func (s *Store) CreateTask(_ context.Context, task *model.Task) (*model.Task, error) {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	s.nextTaskID++
	t := task.Clone()
	t.ID = s.nextTaskID
	s.tasks[t.ID] = t
	s.tasksByQuery[t.QueryID] = append(s.tasksByQuery[t.QueryID], t.ID)
	return t.Clone(), nil
}

func (s *Store) GetTask(_ context.Context, id int64) (*model.Task, error) {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()
	return s.tasks[id].Clone(), nil
}

func (s *Store) ListTasksByQuery(_ context.Context, queryID int64) ([]*model.Task, error) {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()

	ids := s.tasksByQuery[queryID]
	out := make([]*model.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tasks[id].Clone())
	}
	return out, nil
}

func (s *Store) TransitionTask(_ context.Context, id int64, from []model.TaskStatus, tr model.TaskTransition) (*model.Task, error) {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	t, ok := s.tasks[id]
	if !ok || !statusIn(t.Status, from) || !tr.Apply(t) {
		return nil, nil
	}
	return t.Clone(), nil
}

func statusIn(status model.TaskStatus, set []model.TaskStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// ---- activity ----

func (s *Store) AppendActivity(_ context.Context, record *model.ActivityRecord) (*model.ActivityRecord, error) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()

	s.nextActivityID++
	r := *record
	r.ID = s.nextActivityID
	r.WorkerID = cloneID(record.WorkerID)
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	s.activity = append(s.activity, &r)
	out := r
	return &out, nil
}

func (s *Store) ListActivity(_ context.Context, limit int) ([]*model.ActivityRecord, error) {
	s.activityMu.RLock()
	defer s.activityMu.RUnlock()

	// append order equals id order, so the tail is the newest
	n := len(s.activity)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*model.ActivityRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		r := *s.activity[i]
		r.WorkerID = cloneID(r.WorkerID)
		out = append(out, &r)
	}
	return out, nil
}

// ---- research ----

func (s *Store) CreateResearch(_ context.Context, record *model.ResearchRecord) (*model.ResearchRecord, error) {
	s.researchMu.Lock()
	defer s.researchMu.Unlock()

	s.nextResearchID++
	r := cloneResearch(record)
	r.ID = s.nextResearchID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.research = append(s.research, r)
	return cloneResearch(r), nil
}

func (s *Store) ListResearch(_ context.Context) ([]*model.ResearchRecord, error) {
	s.researchMu.RLock()
	defer s.researchMu.RUnlock()

	out := make([]*model.ResearchRecord, 0, len(s.research))
	for i := len(s.research) - 1; i >= 0; i-- {
		out = append(out, cloneResearch(s.research[i]))
	}
	return out, nil
}

func cloneResearch(r *model.ResearchRecord) *model.ResearchRecord {
	c := *r
	c.WorkerID = cloneID(r.WorkerID)
	if r.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// ---- metrics ----

func (s *Store) RecordMetrics(_ context.Context, metrics *model.SystemMetrics) (*model.SystemMetrics, error) {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()

	s.nextMetricsID++
	m := *metrics
	m.ID = s.nextMetricsID
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	s.metrics = append(s.metrics, &m)
	out := m
	return &out, nil
}

func (s *Store) LatestMetrics(_ context.Context) (*model.SystemMetrics, error) {
	s.metricsMu.RLock()
	defer s.metricsMu.RUnlock()

	if len(s.metrics) == 0 {
		return nil, nil
	}
	out := *s.metrics[len(s.metrics)-1]
	return &out, nil
}

// ---- chat ----

func (s *Store) AppendChatMessage(_ context.Context, message *model.ChatMessage) (*model.ChatMessage, error) {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	s.nextChatID++
	m := *message
	m.ID = s.nextChatID
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	s.chat = append(s.chat, &m)
	out := m
	return &out, nil
}

func (s *Store) ListChatMessages(_ context.Context) ([]*model.ChatMessage, error) {
	s.chatMu.RLock()
	defer s.chatMu.RUnlock()

	out := make([]*model.ChatMessage, 0, len(s.chat))
	for _, m := range s.chat {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
