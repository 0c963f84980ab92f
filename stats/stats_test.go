package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-replay/config"
	"call-replay/models"
	"call-replay/stats"
)

func TestWindow(t *testing.T) {
	tests := map[string]struct {
		capacity int
		values   []float64
		mean     float64
		retained []float64
	}{
		"Empty": {
			capacity: 3,
			mean:     0,
			retained: []float64{},
		},
		"PartiallyFilled": {
			capacity: 3,
			values:   []float64{4, 8},
			mean:     6,
			retained: []float64{4, 8},
		},
		"CapacityTwo_KeepsLastTwo": {
			capacity: 2,
			values:   []float64{10, 20, 30},
			mean:     25,
			retained: []float64{20, 30},
		},
		"WrapsMoreThanOnce": {
			capacity: 3,
			values:   []float64{1, 2, 3, 4, 5, 6, 7},
			mean:     6,
			retained: []float64{5, 6, 7},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := stats.NewWindow(tt.capacity)
			for _, v := range tt.values {
				w.Add(v)
			}
			assert.InDelta(t, tt.mean, w.Mean(), 1e-9)
			assert.Equal(t, tt.retained, w.Values())
			assert.Equal(t, len(tt.retained), w.Len())
			assert.Equal(t, tt.capacity, w.Cap())
		})
	}
}

func TestStore_RecordBounds(t *testing.T) {
	base := time.Date(2014, 1, 6, 10, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

	tests := map[string]struct {
		call        models.Call
		waitOK      bool
		serviceOK   bool
		waitMean    float64
		serviceMean float64
	}{
		"AnsweredAndEnded": {
			call:        models.Call{Service: "A", Arrival: at(0), Answered: at(30), Hangup: at(150)},
			waitOK:      true,
			serviceOK:   true,
			waitMean:    30,
			serviceMean: 120,
		},
		"ZeroWaitRecorded": {
			call:        models.Call{Service: "A", Arrival: at(0), Answered: at(0), Hangup: at(60)},
			waitOK:      true,
			serviceOK:   true,
			serviceMean: 60,
		},
		"Abandoned_NothingRecorded": {
			call: models.Call{Service: "A", Arrival: at(0), Hangup: at(90)},
		},
		"WaitAtBound_Rejected": {
			call:        models.Call{Service: "A", Arrival: at(0), Answered: at(7200), Hangup: at(7300)},
			serviceOK:   true,
			serviceMean: 100,
		},
		"ZeroServiceTime_Rejected": {
			call:     models.Call{Service: "A", Arrival: at(0), Answered: at(10), Hangup: at(10)},
			waitOK:   true,
			waitMean: 10,
		},
		"LongServiceTime_Rejected": {
			call:     models.Call{Service: "A", Arrival: at(0), Answered: at(5), Hangup: at(3605)},
			waitOK:   true,
			waitMean: 5,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := stats.NewStore(10, 7200, 3600, "A")
			waitOK, serviceOK := s.Record(&tt.call)
			assert.Equal(t, tt.waitOK, waitOK)
			assert.Equal(t, tt.serviceOK, serviceOK)
			assert.InDelta(t, tt.waitMean, s.Waits("A").Mean(), 1e-9)
			assert.InDelta(t, tt.serviceMean, s.ServiceTimes("A").Mean(), 1e-9)
		})
	}
}

func newCalculator(t *testing.T, services ...string) (*stats.Store, *stats.Calculator) {
	t.Helper()
	cfg := config.Default()
	store := stats.NewStore(cfg.Replay.WindowCapacity, cfg.Replay.MaxWaitSeconds, cfg.Replay.MaxServiceSeconds, services...)
	return store, stats.NewCalculator(store, services, cfg.Replay, cfg.Services)
}

func TestAverageServiceTime_Defaults(t *testing.T) {
	store, calc := newCalculator(t, "Technical", "sales", "30175")

	assert.Equal(t, 300.0, calc.AverageServiceTime("Technical"))
	assert.Equal(t, 180.0, calc.AverageServiceTime("sales"))
	assert.Equal(t, 240.0, calc.AverageServiceTime("30175"))

	require.True(t, store.AddServiceTime("30175", 100))
	require.True(t, store.AddServiceTime("30175", 200))
	assert.Equal(t, 150.0, calc.AverageServiceTime("30175"))
}

func TestPredict_FallbackWithoutHistory(t *testing.T) {
	_, calc := newCalculator(t, "A", "B")

	// queue 2, one idle worker: 2/1*240 plus the 10% load correction
	p := calc.Predict("A", 2, 1)
	assert.InDelta(t, 2.0/1.0*240*1.1, p.LES, 1e-9)
	// no service has wait history: Avg-LES falls back to the per-service estimate
	assert.InDelta(t, p.LES, p.AvgLES, 1e-9)
	assert.Equal(t, 240.0, p.AvgServiceTime)

	// empty queue, no idle worker: nothing waiting, nothing to inflate
	p = calc.Predict("A", 0, 0)
	assert.Equal(t, 0.0, p.LES)

	// no idle worker doubles the fallback; correction divides by max(1, idle)
	p = calc.Predict("A", 3, 0)
	assert.InDelta(t, 3*240*2+3*240*0.1, p.LES, 1e-9)
}

func TestPredict_RollingMeans(t *testing.T) {
	store, calc := newCalculator(t, "A", "B", "C")

	for _, v := range []float64{10, 20, 30} {
		store.AddWait("A", v)
	}
	store.AddWait("B", 100)

	p := calc.Predict("A", 0, 3)
	assert.InDelta(t, 20, p.LES, 1e-9)
	// weighted by window occupancy: (20*3 + 100*1) / 4
	assert.InDelta(t, 40, p.AvgLES, 1e-9)

	// service C has no own history but the cross-service estimate has
	p = calc.Predict("C", 4, 2)
	correction := 4.0 / 2.0 * 240 * 0.1
	assert.InDelta(t, 4.0/2.0*240+correction, p.LES, 1e-9)
	assert.InDelta(t, 40+correction, p.AvgLES, 1e-9)
}

func TestPredict_QueueFactorFloor(t *testing.T) {
	cfg := config.Default()
	cfg.Replay.QueueFactorFloor = 0.1
	store := stats.NewStore(10, 7200, 3600, "A")
	calc := stats.NewCalculator(store, []string{"A"}, cfg.Replay, cfg.Services)
	store.AddWait("A", 50)

	p := calc.Predict("A", 0, 5)
	assert.InDelta(t, 50+0.1*240*0.1, p.LES, 1e-9)
}
