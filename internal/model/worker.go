package model

import (
	"slices"
	"time"
)

// WorkerKind worker role
type WorkerKind string

const (
	WorkerKindSpecialist WorkerKind = "specialist"
	WorkerKindGeneralist WorkerKind = "generalist"
)

// WorkerStatus worker availability
type WorkerStatus string

const (
	WorkerStatusActive  WorkerStatus = "active"  // Working on a task
	WorkerStatusStandby WorkerStatus = "standby" // Idle, can be assigned
	WorkerStatusOffline WorkerStatus = "offline" // Not participating
)

// Valid reports whether s is a known worker status
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusActive, WorkerStatusStandby, WorkerStatusOffline:
		return true
	}
	return false
}

// Valid reports whether k is a known worker kind
func (k WorkerKind) Valid() bool {
	return k == WorkerKindSpecialist || k == WorkerKindGeneralist
}

// Worker simulated research agent
type Worker struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	Kind             WorkerKind   `json:"kind"`
	Specialization   *string      `json:"specialization"`
	Status           WorkerStatus `json:"status"`
	Load             int          `json:"load"` // cpu usage, 0-100
	CurrentTaskLabel *string      `json:"currentTaskLabel"`
	Progress         int          `json:"progress"` // 0-100
	Capabilities     []string     `json:"capabilities"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// Advance adds delta to progress, capped at 100. It reports false and leaves w
// untouched when w no longer has status or already reached 100.
func (w *Worker) Advance(status WorkerStatus, delta int) bool {
	if w.Status != status || w.Progress >= 100 {
		return false
	}
	w.Progress = clampPercent(w.Progress + delta)
	return true
}

// Clone returns a deep copy
func (w *Worker) Clone() *Worker {
	if w == nil {
		return nil
	}
	c := *w
	c.Specialization = cloneString(w.Specialization)
	c.CurrentTaskLabel = cloneString(w.CurrentTaskLabel)
	if w.Capabilities != nil {
		c.Capabilities = slices.Clone(w.Capabilities)
	}
	return &c
}

// WorkerPatch partial worker update; nil fields are left unchanged.
// A CurrentTaskLabel pointing at "" clears the label.
type WorkerPatch struct {
	Name             *string       `json:"name,omitempty"`
	Specialization   *string       `json:"specialization,omitempty"`
	Status           *WorkerStatus `json:"status,omitempty"`
	Load             *int          `json:"load,omitempty"`
	CurrentTaskLabel *string       `json:"currentTaskLabel,omitempty"`
	Progress         *int          `json:"progress,omitempty"`
	Capabilities     []string      `json:"capabilities,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p WorkerPatch) IsEmpty() bool {
	return p.Name == nil && p.Specialization == nil && p.Status == nil && p.Load == nil &&
		p.CurrentTaskLabel == nil && p.Progress == nil && p.Capabilities == nil
}

// Apply applies the patch to w in place
func (p WorkerPatch) Apply(w *Worker) {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Specialization != nil {
		w.Specialization = emptyToNil(*p.Specialization)
	}
	if p.Status != nil {
		w.Status = *p.Status
	}
	if p.Load != nil {
		w.Load = clampPercent(*p.Load)
	}
	if p.CurrentTaskLabel != nil {
		w.CurrentTaskLabel = emptyToNil(*p.CurrentTaskLabel)
	}
	if p.Progress != nil {
		w.Progress = clampPercent(*p.Progress)
	}
	if p.Capabilities != nil {
		w.Capabilities = slices.Clone(p.Capabilities)
	}
}

// CreateWorkerRequest create worker request
type CreateWorkerRequest struct {
	Name             string       `json:"name" binding:"required"`
	Kind             WorkerKind   `json:"kind" binding:"required"`
	Specialization   *string      `json:"specialization"`
	Status           WorkerStatus `json:"status"`
	Load             int          `json:"load"`
	CurrentTaskLabel *string      `json:"currentTaskLabel"`
	Progress         int          `json:"progress"`
	Capabilities     []string     `json:"capabilities"`
}

// ToWorker builds a worker record from the request
func (r *CreateWorkerRequest) ToWorker() *Worker {
	status := r.Status
	if status == "" {
		status = WorkerStatusStandby
	}
	return &Worker{
		Name:             r.Name,
		Kind:             r.Kind,
		Specialization:   cloneString(r.Specialization),
		Status:           status,
		Load:             clampPercent(r.Load),
		CurrentTaskLabel: cloneString(r.CurrentTaskLabel),
		Progress:         clampPercent(r.Progress),
		Capabilities:     append([]string{}, r.Capabilities...),
	}
}
