package models

import "time"

// WorkerID identifies an agent in the historical data.
type WorkerID int

// NoWorker marks a call without an assigned worker.
const NoWorker WorkerID = -1

// CallID is a synthetic identifier assigned at ingestion. Historical records
// carry no durable call identifier, so this is the data row number.
type CallID int

// Call represents one historical inbound call.
// A zero Answered or Hangup means the event never happened.
type Call struct {
	ID       CallID
	Arrival  time.Time
	Service  string
	Worker   WorkerID
	Answered time.Time
	Hangup   time.Time
}

// HasWorker reports whether the history names the worker who took the call.
func (c *Call) HasWorker() bool {
	return c.Worker != NoWorker
}

// IsAnswered reports whether the call was picked up by a worker.
func (c *Call) IsAnswered() bool {
	return !c.Answered.IsZero()
}

// HasHangup reports whether the call end was recorded.
func (c *Call) HasHangup() bool {
	return !c.Hangup.IsZero()
}

// WaitSeconds returns the arrival to answer delay.
func (c *Call) WaitSeconds() (float64, bool) {
	if !c.IsAnswered() {
		return 0, false
	}
	return c.Answered.Sub(c.Arrival).Seconds(), true
}

// ServiceSeconds returns the answer to hangup duration.
func (c *Call) ServiceSeconds() (float64, bool) {
	if !c.IsAnswered() || !c.HasHangup() {
		return 0, false
	}
	return c.Hangup.Sub(c.Answered).Seconds(), true
}

// RealizedWait returns how long the caller actually waited: until the answer,
// or until hanging up when the call was abandoned.
func (c *Call) RealizedWait() (float64, bool) {
	if w, ok := c.WaitSeconds(); ok {
		return w, true
	}
	if c.HasHangup() {
		return c.Hangup.Sub(c.Arrival).Seconds(), true
	}
	return 0, false
}

// Activity is a worker log-in/activity record. Only the worker identity is
// used by the replay.
type Activity struct {
	ID       int64
	Worker   WorkerID
	Campaign int
	Start    time.Time
	End      time.Time
}

// MaxOtherQueues is the number of other-service queue lengths carried by a snapshot.
const MaxOtherQueues = 4

// Snapshot is the system state observed at one call's arrival, before the
// arrival is routed. It is a single labeled training sample.
type Snapshot struct {
	CallID           CallID
	Service          string
	ServiceIndex     int
	QueueLength      int
	OtherQueues      [MaxOtherQueues]int
	Arrival          time.Time
	Hour             int
	DayOfWeek        int
	AvailableWorkers int
	LES              float64
	AvgLES           float64
	RealizedWait     float64
}

// ServiceSummary aggregates the snapshots of one service.
type ServiceSummary struct {
	Service        string
	Samples        int
	AvgWait        float64
	AvgQueueLength float64
	Abandoned      int
}
