package queue_test

import (
	"call-replay/models"
	"call-replay/queue"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(id int, service string) *models.Call {
	return &models.Call{
		ID:      models.CallID(id),
		Service: service,
		Arrival: time.Date(2014, 3, 3, 9, 0, id, 0, time.UTC),
		Worker:  models.NoWorker,
	}
}

func TestFCFS(t *testing.T) {
	s := queue.New("A")
	for i := 1; i <= 3; i++ {
		s.Enqueue(call(i, "A"))
	}
	assert.Equal(t, 3, s.Len("A"))

	head, ok := s.Peek("A")
	require.True(t, ok)
	assert.Equal(t, models.CallID(1), head.ID)

	for i := 1; i <= 3; i++ {
		c, ok := s.Pop("A")
		require.True(t, ok)
		assert.Equal(t, models.CallID(i), c.ID)
	}
	_, ok = s.Pop("A")
	assert.False(t, ok)
	_, ok = s.Peek("A")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	s := queue.New("A")
	for i := 1; i <= 4; i++ {
		s.Enqueue(call(i, "A"))
	}

	assert.True(t, s.Remove("A", 3))
	assert.False(t, s.Contains("A", 3))
	assert.False(t, s.Remove("A", 3))
	assert.False(t, s.Remove("B", 1))

	// order of the remaining calls is untouched
	var ids []models.CallID
	for {
		c, ok := s.Pop("A")
		if !ok {
			break
		}
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []models.CallID{1, 2, 4}, ids)
}

func TestRemoveMatch_FirstFromHead(t *testing.T) {
	s := queue.New("A")
	a, b := call(1, "A"), call(2, "A")
	b.Arrival = a.Arrival
	s.Enqueue(a)
	s.Enqueue(b)

	got, ok := s.RemoveMatch("A", func(c *models.Call) bool { return c.Arrival.Equal(a.Arrival) })
	require.True(t, ok)
	assert.Equal(t, models.CallID(1), got.ID)
	assert.True(t, s.Contains("A", 2))
}

func TestOtherLengths(t *testing.T) {
	s := queue.New("A", "B", "C", "D", "E")
	s.Enqueue(call(1, "B"))
	s.Enqueue(call(2, "B"))
	s.Enqueue(call(3, "E"))
	s.Enqueue(call(4, "A"))

	assert.Equal(t, []int{2, 0, 0, 1}, s.OtherLengths("A", 4))
	assert.Equal(t, []int{1, 2}, s.OtherLengths("C", 2))
	assert.Empty(t, s.OtherLengths("A", 0))

	// unknown services are created lazily and appended to the order
	s.Enqueue(call(5, "F"))
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, s.Services())
}
