package stats

import (
	"math"
	"strings"

	"call-replay/config"
)

// Prediction holds the two load estimates attached to a snapshot.
type Prediction struct {
	// LES is the per-service estimate of the expected wait.
	LES float64
	// AvgLES is the cross-service weighted estimate.
	AvgLES float64
	// AvgServiceTime is the service time the estimates were built on.
	AvgServiceTime float64
}

// Calculator derives predictions from a Store and the current system load.
type Calculator struct {
	store            *Store
	services         []string
	defaults         map[string]float64
	fallback         float64
	loadCorrection   float64
	queueFactorFloor float64
}

// NewCalculator returns a calculator over store. services fixes the set and
// order used by the cross-service estimate.
func NewCalculator(store *Store, services []string, rc config.Replay, sc config.Services) *Calculator {
	defaults := make(map[string]float64, len(sc.DefaultServiceTimes))
	for k, v := range sc.DefaultServiceTimes {
		defaults[strings.ToLower(k)] = v
	}
	return &Calculator{
		store:            store,
		services:         append([]string(nil), services...),
		defaults:         defaults,
		fallback:         sc.FallbackServiceTime,
		loadCorrection:   rc.LoadCorrection,
		queueFactorFloor: rc.QueueFactorFloor,
	}
}

// AverageServiceTime returns the rolling mean service time of service, or
// the default for its category when no completion was observed yet.
func (c *Calculator) AverageServiceTime(service string) float64 {
	if w := c.store.ServiceTimes(service); !w.Empty() {
		return w.Mean()
	}
	if v, ok := c.defaults[strings.ToLower(service)]; ok {
		return v
	}
	return c.fallback
}

// Predict computes both predictors for an arrival on service, given the
// current queue length and the number of idle qualified workers.
func (c *Calculator) Predict(service string, queueLen, idle int) Prediction {
	svc := c.AverageServiceTime(service)

	var les float64
	if w := c.store.Waits(service); !w.Empty() {
		les = w.Mean()
	} else {
		les = c.defaultWait(queueLen, idle, svc)
	}

	avg, weight := 0.0, 0.0
	for _, s := range c.services {
		w := c.store.Waits(s)
		if w.Empty() {
			continue
		}
		wt := math.Max(1, float64(w.Len()))
		avg += w.Mean() * wt
		weight += wt
	}
	if weight > 0 {
		avg /= weight
	} else {
		avg = les
	}

	load := math.Max(c.queueFactorFloor, float64(queueLen)/math.Max(1, float64(idle)))
	correction := load * svc * c.loadCorrection

	return Prediction{
		LES:            math.Max(0, les+correction),
		AvgLES:         math.Max(0, avg+correction),
		AvgServiceTime: svc,
	}
}

// defaultWait estimates the wait of a service with no wait history.
func (c *Calculator) defaultWait(queueLen, idle int, svc float64) float64 {
	est := float64(queueLen) / math.Max(1, float64(idle)) * svc
	if idle <= 0 {
		est *= 2
	}
	return est
}
