// Package queue keeps one first-come-first-served queue of waiting calls per service.
package queue

import "call-replay/models"

// Store owns the per-service queues. Services keep the order they were
// declared in; unknown services get a queue on first use.
type Store struct {
	queues map[string][]*models.Call
	order  []string
}

// New returns a store with an empty queue for each service.
func New(services ...string) *Store {
	s := &Store{queues: make(map[string][]*models.Call, len(services))}
	for _, svc := range services {
		s.ensure(svc)
	}
	return s
}

func (s *Store) ensure(service string) {
	if _, ok := s.queues[service]; !ok {
		s.queues[service] = nil
		s.order = append(s.order, service)
	}
}

// Services returns the service names in declaration order.
func (s *Store) Services() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Enqueue appends call to the tail of its service queue.
func (s *Store) Enqueue(call *models.Call) {
	s.ensure(call.Service)
	s.queues[call.Service] = append(s.queues[call.Service], call)
}

// Peek returns the head of the service queue without removing it.
func (s *Store) Peek(service string) (*models.Call, bool) {
	q := s.queues[service]
	if len(q) == 0 {
		return nil, false
	}
	return q[0], true
}

// Pop removes and returns the head of the service queue.
func (s *Store) Pop(service string) (*models.Call, bool) {
	q := s.queues[service]
	if len(q) == 0 {
		return nil, false
	}
	head := q[0]
	q[0] = nil
	s.queues[service] = q[1:]
	return head, true
}

// Remove deletes the call with the given id from the service queue.
func (s *Store) Remove(service string, id models.CallID) bool {
	_, ok := s.RemoveMatch(service, func(c *models.Call) bool { return c.ID == id })
	return ok
}

// RemoveMatch deletes the first queued call, from the head, for which match
// returns true.
func (s *Store) RemoveMatch(service string, match func(*models.Call) bool) (*models.Call, bool) {
	q := s.queues[service]
	for i, c := range q {
		if !match(c) {
			continue
		}
		copy(q[i:], q[i+1:])
		q[len(q)-1] = nil
		s.queues[service] = q[:len(q)-1]
		return c, true
	}
	return nil, false
}

// Contains reports whether the call is waiting in the service queue.
func (s *Store) Contains(service string, id models.CallID) bool {
	for _, c := range s.queues[service] {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Len returns the number of calls waiting for service.
func (s *Store) Len(service string) int {
	return len(s.queues[service])
}

// OtherLengths returns the queue lengths of up to max services other than
// service, in declaration order.
func (s *Store) OtherLengths(service string, max int) []int {
	out := make([]int, 0, max)
	for _, svc := range s.order {
		if len(out) == max {
			break
		}
		if svc == service {
			continue
		}
		out = append(out, len(s.queues[svc]))
	}
	return out
}
