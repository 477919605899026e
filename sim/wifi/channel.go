package wifi

import (
	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/propagation"
)

// Channel is a broadcast medium: every frame reaches every other attached
// PHY after the propagation delay, attenuated by the loss model.
type Channel struct {
	sim   *sim.Simulator
	loss  propagation.LossModel
	delay propagation.DelayModel
	phys  []*Phy
}

// NewChannel creates a channel with the given propagation models.
func NewChannel(s *sim.Simulator, loss propagation.LossModel, delay propagation.DelayModel) *Channel {
	return &Channel{sim: s, loss: loss, delay: delay}
}

// Add attaches a PHY.
func (c *Channel) Add(p *Phy) {
	c.phys = append(c.phys, p)
	p.attach(c)
}

// Phys returns the attached radios in attachment order.
func (c *Channel) Phys() []*Phy {
	return c.phys
}

// RxPowerDbm is what receiver would measure for a transmission from sender
// right now, receiver gain included.
func (c *Channel) RxPowerDbm(sender, receiver *Phy, txPowerDbm float64) float64 {
	return c.loss.RxPower(txPowerDbm, sender.Position(), receiver.Position()) + receiver.cfg.RxGain
}

func (c *Channel) send(sender *Phy, f *Frame, txPowerDbm float64, duration int64) {
	from := sender.Position()
	for _, receiver := range c.phys {
		if receiver == sender {
			continue
		}
		receiver := receiver
		rxPower := c.RxPowerDbm(sender, receiver, txPowerDbm)
		delay := c.delay.Delay(from, receiver.Position())
		copied := f.Copy()
		c.sim.Schedule(delay, func() { receiver.startReceive(copied, rxPower, duration) })
	}
}
