package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_RunsEventsInTimestampOrder(t *testing.T) {
	// GIVEN events scheduled out of order
	s := NewSimulator(1)
	var order []int64
	for _, at := range []int64{300, 100, 200} {
		at := at
		s.ScheduleAt(at, func() { order = append(order, s.Now()) })
	}

	// WHEN the simulation runs
	s.Run()

	// THEN they execute in timestamp order and the clock ends at the last one
	assert.Equal(t, []int64{100, 200, 300}, order)
	assert.Equal(t, int64(300), s.Now())
	assert.Equal(t, uint64(3), s.EventsExecuted())
}

func TestSimulator_SameTimestamp_FIFO(t *testing.T) {
	s := NewSimulator(1)
	var order []string
	s.ScheduleAt(10, func() { order = append(order, "a") })
	s.ScheduleAt(10, func() { order = append(order, "b") })
	s.ScheduleAt(10, func() { order = append(order, "c") })

	s.Run()

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSimulator_CancelledEventDoesNotRun(t *testing.T) {
	s := NewSimulator(1)
	ran := false
	ev := s.Schedule(Second, func() { ran = true })
	require.True(t, ev.Pending())

	ev.Cancel()
	s.Run()

	assert.False(t, ran)
	assert.False(t, ev.Pending())
}

func TestSimulator_StopBoundsTheRun(t *testing.T) {
	// GIVEN a periodic event and a stop at 1s
	s := NewSimulator(1)
	count := 0
	var tick func()
	tick = func() {
		count++
		s.Schedule(100*Millisecond, tick)
	}
	s.ScheduleAt(0, tick)
	s.Stop(Second)

	// WHEN run
	s.Run()

	// THEN events at 0, 0.1, ..., 0.9 ran but nothing after the stop
	assert.Equal(t, 10, count)
	assert.Equal(t, Second, s.Now())
	assert.Equal(t, Second, s.StopTime())
}

func TestSimulator_EventsAtStopTimeScheduledBeforeStopRun(t *testing.T) {
	s := NewSimulator(1)
	ran := false
	s.ScheduleAt(5*Second, func() { ran = true })
	s.Stop(5 * Second)

	s.Run()

	assert.True(t, ran)
}

func TestSimulator_ScheduleInPastPanics(t *testing.T) {
	s := NewSimulator(1)
	s.ScheduleAt(10, func() {
		assert.Panics(t, func() { s.ScheduleAt(5, func() {}) })
		assert.Panics(t, func() { s.Schedule(-1, func() {}) })
	})
	s.Run()
}

func TestEventHeap_PeekAndPopEmpty(t *testing.T) {
	h := NewEventHeap()
	assert.Nil(t, h.Peek())
	assert.Nil(t, h.PopNext())

	h.Schedule(&StopEvent{BaseEvent: BaseEvent{timestamp: 5, eventID: 2}})
	h.Schedule(&StopEvent{BaseEvent: BaseEvent{timestamp: 5, eventID: 1}})
	require.Equal(t, 2, h.Len())
	assert.Equal(t, uint64(1), h.Peek().EventID())
}

func TestTimeConversions(t *testing.T) {
	assert.Equal(t, int64(100_000_000), Seconds(0.1))
	assert.Equal(t, int64(32_000), Microseconds(32))
	assert.Equal(t, int64(2_000_000), Milliseconds(2))
	assert.InDelta(t, 9.0, ToSeconds(Seconds(10)-Seconds(1)), 1e-12)
	assert.Equal(t, "+1.00089s", FormatTime(1_000_890_000))
	assert.Equal(t, "+1s", FormatTime(Second))
}
