package stats

import "call-replay/models"

// Store holds one wait-time and one service-time window per service.
type Store struct {
	capacity   int
	maxWait    float64
	maxService float64
	waits      map[string]*Window
	services   map[string]*Window
	order      []string
}

// NewStore returns a store whose windows hold capacity values. Waits must
// fall in [0, maxWait) and service times in (0, maxService) to be recorded.
func NewStore(capacity int, maxWait, maxService float64, services ...string) *Store {
	s := &Store{
		capacity:   capacity,
		maxWait:    maxWait,
		maxService: maxService,
		waits:      make(map[string]*Window),
		services:   make(map[string]*Window),
	}
	for _, svc := range services {
		s.ensure(svc)
	}
	return s
}

func (s *Store) ensure(service string) {
	if _, ok := s.waits[service]; ok {
		return
	}
	s.waits[service] = NewWindow(s.capacity)
	s.services[service] = NewWindow(s.capacity)
	s.order = append(s.order, service)
}

// Record adds the observed wait and service time of a completed call.
func (s *Store) Record(call *models.Call) (waitRecorded, serviceRecorded bool) {
	s.ensure(call.Service)
	if w, ok := call.WaitSeconds(); ok && w >= 0 && w < s.maxWait {
		s.waits[call.Service].Add(w)
		waitRecorded = true
	}
	if d, ok := call.ServiceSeconds(); ok && d > 0 && d < s.maxService {
		s.services[call.Service].Add(d)
		serviceRecorded = true
	}
	return waitRecorded, serviceRecorded
}

// AddWait records a wait observation directly, subject to the same bounds.
func (s *Store) AddWait(service string, v float64) bool {
	s.ensure(service)
	if v < 0 || v >= s.maxWait {
		return false
	}
	s.waits[service].Add(v)
	return true
}

// AddServiceTime records a service-time observation, subject to the same bounds.
func (s *Store) AddServiceTime(service string, v float64) bool {
	s.ensure(service)
	if v <= 0 || v >= s.maxService {
		return false
	}
	s.services[service].Add(v)
	return true
}

// Waits returns the wait-time window of service.
func (s *Store) Waits(service string) *Window {
	s.ensure(service)
	return s.waits[service]
}

// ServiceTimes returns the service-time window of service.
func (s *Store) ServiceTimes(service string) *Window {
	s.ensure(service)
	return s.services[service]
}

// Services returns the tracked services in the order they were first seen.
func (s *Store) Services() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
