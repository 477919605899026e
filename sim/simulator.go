// sim/simulator.go
package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Simulator is the core object that holds simulation time, the pending
// event queue and the seeded randomness shared by every model.
type Simulator struct {
	Clock      int64
	EventQueue *EventHeap
	RNG        *Streams

	nextEventID    uint64
	stopAt         int64
	stopped        bool
	eventsExecuted uint64
}

// NewSimulator creates a simulator whose randomness is derived from seed.
// The stop time defaults to "never"; call Stop to bound the run.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		Clock:      0,
		EventQueue: NewEventHeap(),
		RNG:        NewStreams(seed),
		stopAt:     math.MaxInt64,
	}
}

// Now returns the current simulation time in ticks.
func (s *Simulator) Now() int64 {
	return s.Clock
}

// newEventID generates the next event ID for this simulator
func (s *Simulator) newEventID() uint64 {
	s.nextEventID++
	return s.nextEventID
}

// Schedule runs fn after delay ticks. A negative delay is a programming error.
func (s *Simulator) Schedule(delay int64, fn func()) *ScheduledEvent {
	if delay < 0 {
		panic(fmt.Sprintf("negative delay %d scheduled at %d", delay, s.Clock))
	}
	return s.ScheduleAt(s.Clock+delay, fn)
}

// ScheduleAt runs fn at absolute time t, which must not be in the past.
func (s *Simulator) ScheduleAt(t int64, fn func()) *ScheduledEvent {
	if t < s.Clock {
		panic(fmt.Sprintf("event scheduled in the past: %d < %d", t, s.Clock))
	}
	ev := &ScheduledEvent{
		BaseEvent: BaseEvent{timestamp: t, eventID: s.newEventID()},
		fn:        fn,
	}
	s.EventQueue.Schedule(ev)
	return ev
}

// Stop ends the run at absolute time t. Events scheduled at t before the
// call to Stop still run; events scheduled later do not.
func (s *Simulator) Stop(t int64) {
	s.stopAt = t
	s.EventQueue.Schedule(&StopEvent{BaseEvent: BaseEvent{timestamp: t, eventID: s.newEventID()}})
}

// StopTime returns the configured stop time, math.MaxInt64 if unset.
func (s *Simulator) StopTime() int64 {
	return s.stopAt
}

// EventsExecuted returns how many events the loop has processed.
func (s *Simulator) EventsExecuted() uint64 {
	return s.eventsExecuted
}

// Run processes events in order until the queue drains or the stop time is reached.
func (s *Simulator) Run() {
	s.stopped = false
	for s.EventQueue.Len() > 0 && !s.stopped {
		ev := s.EventQueue.PopNext()
		if ev.Timestamp() > s.stopAt {
			// leave it for inspection; the clock still advances to the stop time
			s.EventQueue.Schedule(ev)
			s.Clock = s.stopAt
			break
		}
		if ev.Timestamp() < s.Clock {
			panic(fmt.Sprintf("Clock went backwards: %d < %d", ev.Timestamp(), s.Clock))
		}
		s.Clock = ev.Timestamp()
		ev.Execute(s)
		s.eventsExecuted++
	}
	logrus.Debugf("[t %s] simulation ended after %d events", FormatTime(s.Clock), s.eventsExecuted)
}
