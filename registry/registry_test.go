package registry_test

import (
	"call-replay/models"
	"call-replay/registry"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBestIdle(t *testing.T) {
	tests := map[string]struct {
		setup    func(r *registry.Registry)
		service  string
		expected models.WorkerID
		found    bool
	}{
		"LongestIdleWins": {
			setup: func(r *registry.Registry) {
				r.Add(1, "A")
				r.Add(2, "A")
				r.MarkIdle(1, 40)
				r.MarkIdle(2, 10)
			},
			service:  "A",
			expected: 2,
			found:    true,
		},
		"SkillRequired": {
			setup: func(r *registry.Registry) {
				r.Add(1, "B")
				r.Add(2, "A", "B")
				r.MarkIdle(1, 0)
				r.MarkIdle(2, 50)
			},
			service:  "A",
			expected: 2,
			found:    true,
		},
		"BusyWorkersSkipped": {
			setup: func(r *registry.Registry) {
				r.Add(1, "A")
				r.Add(2, "A")
				r.MarkBusy(1, 5)
				r.MarkIdle(2, 30)
			},
			service:  "A",
			expected: 2,
			found:    true,
		},
		"TieGoesToSmallestID": {
			setup: func(r *registry.Registry) {
				r.Add(9, "A")
				r.Add(3, "A")
				r.Add(5, "A")
			},
			service:  "A",
			expected: 3,
			found:    true,
		},
		"NoneAvailable": {
			setup: func(r *registry.Registry) {
				r.Add(1, "A")
				r.MarkBusy(1, 1)
				r.Add(2, "B")
			},
			service: "A",
			found:   false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := registry.New()
			tt.setup(r)
			w, ok := r.FindBestIdle(tt.service)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, w)
				assert.Equal(t, tt.expected, w.ID)
			}
		})
	}
}

func TestMarkBusyIdle(t *testing.T) {
	r := registry.New()
	r.Add(7, "A")

	assert.True(t, r.MarkBusy(7, 12.5))
	w, ok := r.Get(7)
	require.True(t, ok)
	assert.True(t, w.Busy)
	assert.Equal(t, 12.5, w.LastChange)
	assert.Equal(t, 0, r.IdleQualified("A"))

	assert.True(t, r.MarkIdle(7, 20))
	assert.False(t, w.Busy)
	assert.Equal(t, 1, r.IdleQualified("A"))

	// unknown workers are a no-op
	assert.False(t, r.MarkBusy(99, 1))
	assert.False(t, r.MarkIdle(99, 1))
	assert.Equal(t, 1, r.Len())
}

func TestFromHistory(t *testing.T) {
	calls := []models.Call{
		{ID: 1, Service: "A", Worker: 2},
		{ID: 2, Service: "B", Worker: 2},
		{ID: 3, Service: "A", Worker: 1},
		{ID: 4, Service: "C", Worker: models.NoWorker},
		{ID: 5, Service: "A", Worker: 1},
	}
	activities := []models.Activity{
		{ID: 1, Worker: 1},
		{ID: 2, Worker: 8},
		{ID: 3, Worker: 8},
		{ID: 4, Worker: 9},
	}

	r, unskilled := registry.FromHistory(calls, activities)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, unskilled)

	ws := r.Workers()
	require.Len(t, ws, 2)
	assert.Equal(t, models.WorkerID(1), ws[0].ID)
	assert.Equal(t, models.WorkerID(2), ws[1].ID)
	assert.True(t, ws[1].CanServe("A"))
	assert.True(t, ws[1].CanServe("B"))
	assert.False(t, ws[0].CanServe("B"))
	assert.Equal(t, 2, r.Qualified("A"))
	assert.Equal(t, 0, r.Qualified("C"))
}
