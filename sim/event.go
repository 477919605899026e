package sim

// Event defines the interface for all simulation events.
// Each event has a Timestamp (in ticks), an EventID used to break ties
// deterministically, and an Execute method that advances simulation state.
type Event interface {
	Timestamp() int64
	EventID() uint64
	Execute(*Simulator)
}

// BaseEvent provides common event fields
type BaseEvent struct {
	timestamp int64
	eventID   uint64
}

func (e *BaseEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *BaseEvent) EventID() uint64 {
	return e.eventID
}

// ScheduledEvent runs a callback at its timestamp unless cancelled first.
// It is the handle returned by Simulator.Schedule and Simulator.ScheduleAt.
type ScheduledEvent struct {
	BaseEvent
	fn        func()
	cancelled bool
	executed  bool
}

// Execute runs the callback if the event is still pending.
func (e *ScheduledEvent) Execute(_ *Simulator) {
	if e.cancelled {
		return
	}
	e.executed = true
	e.fn()
}

// Cancel prevents the callback from running. Cancelling an event that
// already ran, or a nil handle, is a no-op.
func (e *ScheduledEvent) Cancel() {
	if e == nil {
		return
	}
	e.cancelled = true
}

// Pending reports whether the event is still waiting to run.
func (e *ScheduledEvent) Pending() bool {
	return e != nil && !e.cancelled && !e.executed
}

// StopEvent ends the event loop at its timestamp.
type StopEvent struct {
	BaseEvent
}

// Execute halts the simulator
func (e *StopEvent) Execute(s *Simulator) {
	s.stopped = true
}
