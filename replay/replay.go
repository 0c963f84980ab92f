// Package replay re-enacts a historical call log through the scheduler,
// routing and statistics components and captures one snapshot per arrival.
package replay

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"call-replay/config"
	customerrors "call-replay/errors"
	"call-replay/metrics"
	"call-replay/models"
	"call-replay/parser"
	"call-replay/queue"
	"call-replay/registry"
	"call-replay/routing"
	"call-replay/scheduler"
	"call-replay/stats"
)

// Reasons a captured snapshot is dropped from the training set.
const (
	DiscardNegativeWait = "negative_wait"
	DiscardWaitTooLong  = "wait_too_long"
	DiscardNoOutcome    = "no_outcome"
)

// Result is the outcome of one replay run.
type Result struct {
	RunID      string
	Services   []string
	Snapshots  []models.Snapshot
	Dispatched int
	// Rejected counts events that could not be scheduled: non-finite times
	// and answered/hangup timestamps earlier than the arrival.
	Rejected  int
	Discarded map[string]int
	Abandoned int
	// Pending is the number of calls still queued or held after the drain.
	Pending   int
	Summaries []models.ServiceSummary
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDispatchHook registers fn to observe every event right before it is
// applied.
func WithDispatchHook(fn func(at float64, ev Event)) Option {
	return func(e *Engine) { e.hook = fn }
}

// Engine owns all mutable state of a single replay run. It is not reusable:
// Run may be called once.
type Engine struct {
	cfg      config.Config
	services []string
	index    map[string]int
	calls    []models.Call
	origin   time.Time
	log      zerolog.Logger
	hook     func(at float64, ev Event)

	sched   *scheduler.Scheduler[Event]
	workers *registry.Registry
	queues  *queue.Store
	stats   *stats.Store
	calc    *stats.Calculator
	policy  *routing.Policy

	result    *Result
	abandoned map[string]int
	ran       bool
}

// New prepares a replay over calls. When services is empty the busiest
// services of the log are used. Calls outside services are ignored, the rest
// are ordered by arrival. Call ids are reassigned when missing or duplicated.
func New(cfg config.Config, services []string, calls []models.Call, activities []models.Activity, log zerolog.Logger, opts ...Option) *Engine {
	if len(services) == 0 {
		services = parser.TopServices(calls, cfg.Services.TopN, 0)
	}
	if len(services) > config.MaxServices {
		services = services[:config.MaxServices]
	}

	inScope := parser.FilterServices(calls, services)
	parser.SortByArrival(inScope)
	renumber(inScope)

	workers, unskilled := registry.FromHistory(inScope, activities)
	if unskilled > 0 {
		log.Info().Int("workers", unskilled).Msg("activity workers without in-scope calls ignored")
	}

	store := stats.NewStore(cfg.Replay.WindowCapacity, cfg.Replay.MaxWaitSeconds, cfg.Replay.MaxServiceSeconds, services...)
	queues := queue.New(services...)

	e := &Engine{
		cfg:      cfg,
		services: append([]string(nil), services...),
		index:    make(map[string]int, len(services)),
		calls:    inScope,
		log:      log,
		sched:    scheduler.New[Event](cfg.Replay.MinEventInterval),
		workers:  workers,
		queues:   queues,
		stats:    store,
		calc:     stats.NewCalculator(store, services, cfg.Replay, cfg.Services),
		policy:   routing.New(workers, queues, cfg.Replay.MatchByTuple, log),

		abandoned: make(map[string]int),
	}
	for i, s := range services {
		e.index[s] = i + 1
	}
	if len(inScope) > 0 {
		e.origin = inScope[0].Arrival
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// renumber gives calls sequential ids unless they already carry distinct
// non-zero ones.
func renumber(calls []models.Call) {
	seen := make(map[models.CallID]struct{}, len(calls))
	unique := true
	for i := range calls {
		if _, dup := seen[calls[i].ID]; dup || calls[i].ID == 0 {
			unique = false
			break
		}
		seen[calls[i].ID] = struct{}{}
	}
	if unique {
		return
	}
	for i := range calls {
		calls[i].ID = models.CallID(i + 1)
	}
}

// Run replays the whole log and returns the captured snapshots.
func (e *Engine) Run() (*Result, error) {
	if e.ran {
		return nil, fmt.Errorf("replay %s already ran", e.resultID())
	}
	e.ran = true

	start := time.Now()
	defer func() { metrics.ReplayDurationSeconds.Observe(time.Since(start).Seconds()) }()
	metrics.ResetReplayGauges()

	e.result = &Result{
		RunID:     uuid.NewString(),
		Services:  e.services,
		Discarded: make(map[string]int),
	}
	if len(e.calls) == 0 {
		return e.result, customerrors.ErrNoCalls
	}

	e.log.Info().Str("run_id", e.result.RunID).Int("calls", len(e.calls)).
		Int("workers", e.workers.Len()).Strs("services", e.services).Msg("replay started")

	for i := range e.calls {
		e.scheduleCall(&e.calls[i])
	}
	e.sched.Drain(e.dispatch)

	e.result.Dispatched = e.sched.Dispatched()
	e.result.Rejected += e.sched.Rejected()
	e.result.Pending = e.policy.Held()
	for _, s := range e.services {
		e.result.Pending += e.queues.Len(s)
	}
	e.result.Summaries = summarize(e.services, e.result.Snapshots, e.abandoned)

	e.log.Info().Str("run_id", e.result.RunID).Int("snapshots", len(e.result.Snapshots)).
		Int("dispatched", e.result.Dispatched).Int("rejected", e.result.Rejected).
		Int("abandoned", e.result.Abandoned).Int("pending", e.result.Pending).
		Dur("elapsed", time.Since(start)).Msg("replay finished")
	return e.result, nil
}

func (e *Engine) resultID() string {
	if e.result == nil {
		return ""
	}
	return e.result.RunID
}

// Holder returns the worker currently handling the call.
func (e *Engine) Holder(id models.CallID) (models.WorkerID, bool) {
	return e.policy.Holder(id)
}

// HeldBy returns the call the worker is currently handling.
func (e *Engine) HeldBy(id models.WorkerID) (models.CallID, bool) {
	return e.policy.HeldBy(id)
}

// Queued reports whether the call is waiting in the queue of service.
func (e *Engine) Queued(service string, id models.CallID) bool {
	return e.queues.Contains(service, id)
}

// clock converts a wall-clock timestamp to replay seconds.
func (e *Engine) clock(t time.Time) float64 {
	return t.Sub(e.origin).Seconds()
}

// scheduleCall inserts the arrival of call and, when they are consistent with
// it, the historical answered and hangup events.
func (e *Engine) scheduleCall(call *models.Call) {
	e.schedule(e.clock(call.Arrival), Event{Kind: KindArrival, Call: call, Worker: models.NoWorker})

	if call.IsAnswered() {
		if call.Answered.Before(call.Arrival) {
			e.skip(call, KindAnswered)
		} else {
			e.schedule(e.clock(call.Answered), Event{Kind: KindAnswered, Call: call, Worker: call.Worker})
		}
	}
	if call.HasHangup() {
		if call.Hangup.Before(call.Arrival) {
			e.skip(call, KindHangup)
		} else {
			e.schedule(e.clock(call.Hangup), Event{Kind: KindHangup, Call: call, Worker: models.NoWorker})
		}
	}
}

func (e *Engine) schedule(at float64, ev Event) {
	if _, err := e.sched.Schedule(at, ev); err != nil {
		metrics.EventsRejectedTotal.Inc()
		e.log.Warn().Err(err).Int("call_id", int(ev.Call.ID)).Str("kind", ev.Kind.String()).Msg("event not scheduled")
	}
}

func (e *Engine) skip(call *models.Call, kind Kind) {
	e.result.Rejected++
	metrics.EventsRejectedTotal.Inc()
	e.log.Warn().Int("call_id", int(call.ID)).Str("service", call.Service).
		Str("kind", kind.String()).Msg("event precedes arrival, skipped")
}

func (e *Engine) dispatch(at float64, ev Event) {
	if e.hook != nil {
		e.hook(at, ev)
	}
	metrics.EventsDispatchedTotal.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case KindArrival:
		e.onArrival(at, ev.Call)
	case KindAnswered:
		e.onAnswered(at, ev.Call, ev.Worker)
	case KindHangup:
		e.onHangup(at, ev.Call)
	default:
		e.log.Error().Int("kind", int(ev.Kind)).Msg("unknown event kind")
	}
	metrics.QueueDepth.WithLabelValues(ev.Call.Service).Set(float64(e.queues.Len(ev.Call.Service)))
}

func (e *Engine) onArrival(at float64, call *models.Call) {
	snap, reason := e.capture(call)
	if reason == "" {
		e.result.Snapshots = append(e.result.Snapshots, snap)
		metrics.SnapshotsCapturedTotal.Inc()
	} else {
		e.result.Discarded[reason]++
		metrics.SnapshotsDiscardedTotal.WithLabelValues(reason).Inc()
		e.log.Debug().Int("call_id", int(call.ID)).Str("reason", reason).Msg("snapshot discarded")
	}

	if d := e.policy.Arrive(call, at); d.Routed {
		metrics.CallsRoutedTotal.WithLabelValues("direct").Inc()
	} else {
		metrics.CallsQueuedTotal.WithLabelValues(call.Service).Inc()
	}
}

// capture builds the snapshot of call's arrival from the state before it is
// routed. A non-empty reason means the sample is not usable.
func (e *Engine) capture(call *models.Call) (models.Snapshot, string) {
	qlen := e.queues.Len(call.Service)
	idle := e.workers.IdleQualified(call.Service)
	metrics.IdleWorkers.WithLabelValues(call.Service).Set(float64(idle))

	pred := e.calc.Predict(call.Service, qlen, idle)
	snap := models.Snapshot{
		CallID:           call.ID,
		Service:          call.Service,
		ServiceIndex:     e.index[call.Service],
		QueueLength:      qlen,
		Arrival:          call.Arrival,
		Hour:             call.Arrival.Hour(),
		DayOfWeek:        isoWeekday(call.Arrival),
		AvailableWorkers: max(1, idle),
		LES:              pred.LES,
		AvgLES:           pred.AvgLES,
	}
	limit := min(e.cfg.Replay.MaxOtherQueues, models.MaxOtherQueues)
	copy(snap.OtherQueues[:], e.queues.OtherLengths(call.Service, limit))

	wait, ok := call.RealizedWait()
	switch {
	case !ok:
		return snap, DiscardNoOutcome
	case wait < 0:
		return snap, DiscardNegativeWait
	case wait >= e.cfg.Replay.MaxWaitSeconds:
		return snap, DiscardWaitTooLong
	}
	snap.RealizedWait = wait
	return snap, ""
}

func (e *Engine) onAnswered(at float64, call *models.Call, worker models.WorkerID) {
	out := e.policy.Answer(call, worker, at)
	if out.Worker != models.NoWorker && !out.AlreadyHeld {
		metrics.CallsRoutedTotal.WithLabelValues("historical").Inc()
	}
}

func (e *Engine) onHangup(at float64, call *models.Call) {
	out := e.policy.Hangup(call, at)
	if out.Abandoned {
		e.result.Abandoned++
		e.abandoned[call.Service]++
		metrics.CallsAbandonedTotal.WithLabelValues(call.Service).Inc()
	}
	e.stats.Record(call)

	if !out.Released {
		return
	}
	// only the queue of the finished call's service is advanced
	a, ok := e.policy.Advance(call.Service, at)
	if !ok {
		return
	}
	metrics.CallsRoutedTotal.WithLabelValues("advanced").Inc()
	e.schedule(at+e.cfg.Replay.ConnectionDelay, Event{Kind: KindAnswered, Call: a.Call, Worker: a.Worker})
}

// isoWeekday maps Monday..Sunday to 1..7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func summarize(services []string, snaps []models.Snapshot, abandoned map[string]int) []models.ServiceSummary {
	byService := make(map[string]*models.ServiceSummary, len(services))
	out := make([]models.ServiceSummary, len(services))
	for i, s := range services {
		out[i] = models.ServiceSummary{Service: s, Abandoned: abandoned[s]}
		byService[s] = &out[i]
	}
	for _, snap := range snaps {
		sum, ok := byService[snap.Service]
		if !ok {
			continue
		}
		sum.Samples++
		sum.AvgWait += snap.RealizedWait
		sum.AvgQueueLength += float64(snap.QueueLength)
	}
	for i := range out {
		if out[i].Samples > 0 {
			out[i].AvgWait /= float64(out[i].Samples)
			out[i].AvgQueueLength /= float64(out[i].Samples)
		}
	}
	return out
}
