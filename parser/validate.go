package parser

import (
	"call-replay/errors"
	"call-replay/models"
	"fmt"
	"slices"
	"sort"
)

// Validate checks the temporal consistency of a call record. maxWait bounds
// the arrival to answer delay in seconds.
func Validate(c *models.Call, maxWait float64) error {
	if c.Arrival.IsZero() {
		return errors.ErrMissingArrival
	}
	if c.Service == "" {
		return errors.ErrMissingService
	}
	if w, ok := c.WaitSeconds(); ok && (w < 0 || w >= maxWait) {
		return fmt.Errorf("%w: %.0fs", errors.ErrWaitOutOfRange, w)
	}
	if c.HasHangup() {
		from := c.Arrival
		if c.IsAnswered() {
			from = c.Answered
		}
		if c.Hangup.Before(from) {
			return errors.ErrInconsistentTimes
		}
	}
	return nil
}

// FilterValid returns the calls that pass Validate and the number rejected.
func FilterValid(calls []models.Call, maxWait float64) ([]models.Call, int) {
	valid := make([]models.Call, 0, len(calls))
	for i := range calls {
		if Validate(&calls[i], maxWait) != nil {
			continue
		}
		valid = append(valid, calls[i])
	}
	return valid, len(calls) - len(valid)
}

// TopServices returns up to n services with at least minVolume calls,
// ordered by descending volume. Equal volumes are ordered by name.
func TopServices(calls []models.Call, n, minVolume int) []string {
	volume := make(map[string]int)
	for i := range calls {
		if calls[i].Service == "" || calls[i].Arrival.IsZero() {
			continue
		}
		volume[calls[i].Service]++
	}

	services := make([]string, 0, len(volume))
	for s, v := range volume {
		if v >= minVolume {
			services = append(services, s)
		}
	}
	sort.Slice(services, func(i, j int) bool {
		if volume[services[i]] != volume[services[j]] {
			return volume[services[i]] > volume[services[j]]
		}
		return services[i] < services[j]
	})
	if n >= 0 && len(services) > n {
		services = services[:n]
	}
	return services
}

// FilterServices keeps the calls that belong to one of services.
func FilterServices(calls []models.Call, services []string) []models.Call {
	out := make([]models.Call, 0, len(calls))
	for i := range calls {
		if slices.Contains(services, calls[i].Service) {
			out = append(out, calls[i])
		}
	}
	return out
}

// SortByArrival orders calls chronologically, keeping the input order of
// calls that arrived at the same instant.
func SortByArrival(calls []models.Call) {
	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].Arrival.Before(calls[j].Arrival)
	})
}
