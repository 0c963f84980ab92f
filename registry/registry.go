// Package registry tracks workers, their skills and their busy/idle state.
package registry

import (
	"call-replay/models"
	"sort"
)

// Worker is one agent as seen by the replay.
type Worker struct {
	ID         models.WorkerID
	Skills     map[string]struct{}
	Busy       bool
	LastChange float64
}

// CanServe reports whether the worker is skilled for service.
func (w *Worker) CanServe(service string) bool {
	_, ok := w.Skills[service]
	return ok
}

// Registry owns the worker population of one replay run.
// Workers are kept in ascending ID order so scans are deterministic.
type Registry struct {
	byID  map[models.WorkerID]*Worker
	order []*Worker
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[models.WorkerID]*Worker)}
}

// FromHistory learns skill sets from the distinct (worker, service) pairs in
// calls. Activity records only confirm worker presence; the number of
// activity workers that never took an in-scope call is returned so callers
// can report it.
func FromHistory(calls []models.Call, activities []models.Activity) (*Registry, int) {
	r := New()
	for i := range calls {
		c := &calls[i]
		if !c.HasWorker() || c.Service == "" {
			continue
		}
		r.Add(c.Worker, c.Service)
	}

	unskilled := make(map[models.WorkerID]struct{})
	for _, a := range activities {
		if a.Worker == models.NoWorker {
			continue
		}
		if _, ok := r.byID[a.Worker]; !ok {
			unskilled[a.Worker] = struct{}{}
		}
	}
	return r, len(unskilled)
}

// Add registers a worker, or extends its skills if it already exists.
func (r *Registry) Add(id models.WorkerID, skills ...string) *Worker {
	w, ok := r.byID[id]
	if !ok {
		w = &Worker{ID: id, Skills: make(map[string]struct{})}
		r.byID[id] = w
		idx := sort.Search(len(r.order), func(i int) bool { return r.order[i].ID >= id })
		r.order = append(r.order, nil)
		copy(r.order[idx+1:], r.order[idx:])
		r.order[idx] = w
	}
	for _, s := range skills {
		w.Skills[s] = struct{}{}
	}
	return w
}

// Get returns the worker with the given id.
func (r *Registry) Get(id models.WorkerID) (*Worker, bool) {
	w, ok := r.byID[id]
	return w, ok
}

// Len returns the number of registered workers.
func (r *Registry) Len() int { return len(r.order) }

// Workers returns the workers in ascending ID order.
func (r *Registry) Workers() []*Worker {
	out := make([]*Worker, len(r.order))
	copy(out, r.order)
	return out
}

// FindBestIdle returns the idle worker skilled for service that has been idle
// the longest (smallest LastChange). Equal timestamps go to the smaller ID.
// This is a linear scan; populations are small.
func (r *Registry) FindBestIdle(service string) (*Worker, bool) {
	var best *Worker
	for _, w := range r.order {
		if w.Busy || !w.CanServe(service) {
			continue
		}
		if best == nil || w.LastChange < best.LastChange {
			best = w
		}
	}
	return best, best != nil
}

// MarkBusy flags the worker as busy from at. Unknown workers are ignored and
// reported with false.
func (r *Registry) MarkBusy(id models.WorkerID, at float64) bool {
	return r.set(id, true, at)
}

// MarkIdle flags the worker as idle from at. Unknown workers are ignored and
// reported with false.
func (r *Registry) MarkIdle(id models.WorkerID, at float64) bool {
	return r.set(id, false, at)
}

func (r *Registry) set(id models.WorkerID, busy bool, at float64) bool {
	w, ok := r.byID[id]
	if !ok {
		return false
	}
	w.Busy = busy
	w.LastChange = at
	return true
}

// IdleQualified counts idle workers skilled for service.
func (r *Registry) IdleQualified(service string) int {
	n := 0
	for _, w := range r.order {
		if !w.Busy && w.CanServe(service) {
			n++
		}
	}
	return n
}

// Qualified counts workers skilled for service, busy or not.
func (r *Registry) Qualified(service string) int {
	n := 0
	for _, w := range r.order {
		if w.CanServe(service) {
			n++
		}
	}
	return n
}
