package propagation

import (
	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/mobility"
)

// DelayModel returns how long a signal takes to travel from a to b, in ticks.
type DelayModel interface {
	Delay(a, b mobility.Vector) int64
}

// ConstantSpeed propagates at a fixed speed, the speed of light by default.
type ConstantSpeed struct {
	Speed float64 // m/s
}

func NewConstantSpeed() *ConstantSpeed {
	return &ConstantSpeed{Speed: SpeedOfLight}
}

func (m *ConstantSpeed) Delay(a, b mobility.Vector) int64 {
	return sim.Seconds(mobility.Distance(a, b) / m.Speed)
}
