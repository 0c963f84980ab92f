// Package routing implements the greedy skill-based routing of the replay:
// a call goes to the longest-idle qualified worker, or waits in its service
// queue until a worker frees up.
package routing

import (
	"github.com/rs/zerolog"

	"call-replay/models"
	"call-replay/queue"
	"call-replay/registry"
)

// Decision is the outcome of routing an arriving call.
type Decision struct {
	Routed bool
	Worker models.WorkerID
}

// AnswerOutcome describes what an answered event changed.
type AnswerOutcome struct {
	// AlreadyHeld is set when the call was already with a worker.
	AlreadyHeld bool
	// Ended is set when the call hung up before the answer was applied.
	Ended bool
	// Dequeued is set when the call was removed from its queue.
	Dequeued bool
	// Worker is the worker now holding the call, or NoWorker.
	Worker models.WorkerID
}

// HangupOutcome describes what a hangup event changed.
type HangupOutcome struct {
	Released  bool
	Worker    models.WorkerID
	Abandoned bool
}

// Assignment is a queued call handed to a worker by queue advancement.
type Assignment struct {
	Call   *models.Call
	Worker models.WorkerID
}

// Policy mutates the worker registry and queue store. It also tracks which
// worker holds which call, so a call is never both queued and held and a
// worker never holds two calls.
type Policy struct {
	workers      *registry.Registry
	queues       *queue.Store
	matchByTuple bool
	log          zerolog.Logger

	holders map[models.CallID]models.WorkerID
	holding map[models.WorkerID]models.CallID
	ended   map[models.CallID]struct{}
}

// New returns a policy over the given registry and queues. With matchByTuple
// set, answered calls are located in their queue by (arrival, service,
// historical worker) instead of by id.
func New(workers *registry.Registry, queues *queue.Store, matchByTuple bool, log zerolog.Logger) *Policy {
	return &Policy{
		workers:      workers,
		queues:       queues,
		matchByTuple: matchByTuple,
		log:          log,
		holders:      make(map[models.CallID]models.WorkerID),
		holding:      make(map[models.WorkerID]models.CallID),
		ended:        make(map[models.CallID]struct{}),
	}
}

// Arrive routes call to the best idle qualified worker, or appends it to its
// service queue when none is available.
func (p *Policy) Arrive(call *models.Call, now float64) Decision {
	if w, ok := p.workers.FindBestIdle(call.Service); ok {
		p.assign(call, w.ID, now)
		p.log.Debug().Int("call_id", int(call.ID)).Str("service", call.Service).
			Int("worker", int(w.ID)).Float64("at", now).Msg("routed call")
		return Decision{Routed: true, Worker: w.ID}
	}
	p.queues.Enqueue(call)
	p.log.Debug().Int("call_id", int(call.ID)).Str("service", call.Service).
		Int("queue_length", p.queues.Len(call.Service)).Float64("at", now).Msg("queued call")
	return Decision{Worker: models.NoWorker}
}

// Answer applies an answered event for call. hint is the worker that picked
// up the call, either from the history or from queue advancement.
func (p *Policy) Answer(call *models.Call, hint models.WorkerID, now float64) AnswerOutcome {
	if w, ok := p.holders[call.ID]; ok {
		return AnswerOutcome{AlreadyHeld: true, Worker: w}
	}
	if _, ok := p.ended[call.ID]; ok {
		return AnswerOutcome{Ended: true, Worker: models.NoWorker}
	}

	target, dequeued := p.dequeue(call)
	out := AnswerOutcome{Dequeued: dequeued, Worker: models.NoWorker}
	if !out.Dequeued {
		p.log.Debug().Int("call_id", int(call.ID)).Msg("answered call was not queued")
	}

	w, ok := p.workers.Get(hint)
	switch {
	case !ok:
		p.log.Debug().Int("call_id", int(call.ID)).Int("worker", int(hint)).Msg("answering worker not in registry")
	case w.Busy:
		p.log.Debug().Int("call_id", int(call.ID)).Int("worker", int(hint)).Msg("answering worker already busy")
	default:
		p.assign(target, hint, now)
		out.Worker = hint
	}
	return out
}

// Hangup applies the end of call: its worker becomes idle, or, when the call
// was still waiting, it leaves the queue as abandoned.
func (p *Policy) Hangup(call *models.Call, now float64) HangupOutcome {
	p.ended[call.ID] = struct{}{}
	if w, ok := p.holders[call.ID]; ok {
		delete(p.holders, call.ID)
		delete(p.holding, w)
		p.workers.MarkIdle(w, now)
		return HangupOutcome{Released: true, Worker: w}
	}
	if p.queues.Remove(call.Service, call.ID) {
		p.log.Debug().Int("call_id", int(call.ID)).Str("service", call.Service).Float64("at", now).Msg("call abandoned")
		return HangupOutcome{Abandoned: true, Worker: models.NoWorker}
	}
	return HangupOutcome{Worker: models.NoWorker}
}

// Advance hands the head of the service queue to the best idle qualified
// worker. The caller schedules the resulting answered event.
func (p *Policy) Advance(service string, now float64) (Assignment, bool) {
	if p.queues.Len(service) == 0 {
		return Assignment{}, false
	}
	w, ok := p.workers.FindBestIdle(service)
	if !ok {
		return Assignment{}, false
	}
	call, _ := p.queues.Pop(service)
	p.assign(call, w.ID, now)
	p.log.Debug().Int("call_id", int(call.ID)).Str("service", service).
		Int("worker", int(w.ID)).Float64("at", now).Msg("advanced queue")
	return Assignment{Call: call, Worker: w.ID}, true
}

// Holder returns the worker holding the call.
func (p *Policy) Holder(id models.CallID) (models.WorkerID, bool) {
	w, ok := p.holders[id]
	return w, ok
}

// HeldBy returns the call the worker is handling.
func (p *Policy) HeldBy(id models.WorkerID) (models.CallID, bool) {
	c, ok := p.holding[id]
	return c, ok
}

// Held returns the number of calls currently with a worker.
func (p *Policy) Held() int { return len(p.holders) }

func (p *Policy) assign(call *models.Call, w models.WorkerID, now float64) {
	p.workers.MarkBusy(w, now)
	p.holders[call.ID] = w
	p.holding[w] = call.ID
}

// dequeue removes the answered call from its queue and returns the queued
// record. With tuple matching that record may be a different call carrying
// the same (arrival, service, worker); otherwise, and when nothing matched,
// it is call itself.
func (p *Policy) dequeue(call *models.Call) (*models.Call, bool) {
	if !p.matchByTuple {
		return call, p.queues.Remove(call.Service, call.ID)
	}
	queued, ok := p.queues.RemoveMatch(call.Service, func(q *models.Call) bool {
		return q.Arrival.Equal(call.Arrival) && q.Service == call.Service && q.Worker == call.Worker
	})
	if !ok {
		return call, false
	}
	return queued, true
}
