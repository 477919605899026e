// Package apps holds the traffic generators installed on simulated nodes.
package apps

import (
	"github.com/vanet-sim/dsrc-sim/sim"
)

// Application is something a node runs between a start and a stop time.
type Application interface {
	Name() string
	Start() error
	Stop()
}

// Install schedules app to run on s from start until stop. A stop time at
// or before start means the application runs until the simulation ends.
// Start failures are reported through onError, which may be nil.
func Install(s *sim.Simulator, app Application, start, stop int64, onError func(Application, error)) {
	started := false
	s.ScheduleAt(start, func() {
		if err := app.Start(); err != nil {
			if onError != nil {
				onError(app, err)
			}
			return
		}
		started = true
	})
	if stop > start {
		s.ScheduleAt(stop, func() {
			if started {
				app.Stop()
			}
		})
	}
}
