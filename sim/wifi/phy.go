package wifi

import (
	"math/rand"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/mobility"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
)

// PhyConfig holds the radio attributes a scenario can tune.
type PhyConfig struct {
	TxPowerStart  float64 `yaml:"tx_power_start"` // dBm
	TxPowerEnd    float64 `yaml:"tx_power_end"`   // dBm
	TxGain        float64 `yaml:"tx_gain"`        // dB
	RxGain        float64 `yaml:"rx_gain"`        // dB
	RxNoiseFigure float64 `yaml:"rx_noise_figure"`
	RxSensitivity float64 `yaml:"rx_sensitivity"` // dBm
}

// DefaultPhyConfig returns the stock radio attributes.
func DefaultPhyConfig() PhyConfig {
	return PhyConfig{
		TxPowerStart:  16.0206,
		TxPowerEnd:    16.0206,
		TxGain:        0,
		RxGain:        0,
		RxNoiseFigure: 7,
		RxSensitivity: -101,
	}
}

// PhyState is the observable state of the radio.
type PhyState string

const (
	PhyIdle    PhyState = "IDLE"
	PhyTx      PhyState = "TX"
	PhyRx      PhyState = "RX"
	PhyCcaBusy PhyState = "CCA_BUSY"
)

// TxEvent, RxEvent and DropEvent are what sniffers see.
type TxEvent struct {
	Time       int64
	NodeID     int
	DeviceID   int
	Frame      *Frame
	Duration   int64
	TxPowerDbm float64
}

type RxEvent struct {
	Time       int64
	NodeID     int
	DeviceID   int
	Frame      *Frame
	RxPowerDbm float64
	SnrDb      float64
}

type DropEvent struct {
	Time     int64
	NodeID   int
	DeviceID int
	Frame    *Frame
	Reason   string
}

type reception struct {
	frame      *Frame
	rxPowerDbm float64
	end        int64
	failed     bool
	reason     string
}

// Phy is a half-duplex radio attached to one Channel.
type Phy struct {
	sim      *sim.Simulator
	nodeID   int
	deviceID int
	cfg      PhyConfig
	std      Standard
	mobility mobility.Model
	errors   ErrorModel
	rng      *rand.Rand
	metrics  *metrics.Registry
	channel  *Channel

	txEnd     int64
	busyUntil int64
	rx        *reception

	receiver     func(*Frame, RxEvent)
	txSniffers   []func(TxEvent)
	rxSniffers   []func(RxEvent)
	dropSniffers []func(DropEvent)
}

// NewPhy creates a radio for device deviceID of node nodeID.
func NewPhy(s *sim.Simulator, nodeID, deviceID int, std Standard, cfg PhyConfig, mob mobility.Model, reg *metrics.Registry) *Phy {
	return &Phy{
		sim:      s,
		nodeID:   nodeID,
		deviceID: deviceID,
		cfg:      cfg,
		std:      std,
		mobility: mob,
		errors:   QPSKErrorModel{},
		rng:      s.RNG.Get(sim.PhyStream(nodeID)),
		metrics:  reg,
	}
}

// SetErrorModel replaces the default QPSK error model.
func (p *Phy) SetErrorModel(m ErrorModel) { p.errors = m }

// SetReceiveCallback registers the MAC as the consumer of good frames.
func (p *Phy) SetReceiveCallback(fn func(*Frame, RxEvent)) { p.receiver = fn }

func (p *Phy) TraceTx(fn func(TxEvent))     { p.txSniffers = append(p.txSniffers, fn) }
func (p *Phy) TraceRx(fn func(RxEvent))     { p.rxSniffers = append(p.rxSniffers, fn) }
func (p *Phy) TraceDrop(fn func(DropEvent)) { p.dropSniffers = append(p.dropSniffers, fn) }

func (p *Phy) NodeID() int               { return p.nodeID }
func (p *Phy) DeviceID() int             { return p.deviceID }
func (p *Phy) Standard() Standard        { return p.std }
func (p *Phy) Config() PhyConfig         { return p.cfg }
func (p *Phy) Mobility() mobility.Model  { return p.mobility }
func (p *Phy) Position() mobility.Vector { return p.mobility.Position(p.sim.Now()) }
func (p *Phy) attach(c *Channel)         { p.channel = c }
func (p *Phy) NoiseFloorDbm() float64 {
	return ThermalNoiseDbm(p.std.ChannelWidth, p.cfg.RxNoiseFigure)
}
func (p *Phy) TxPowerDbm() float64 { return p.cfg.TxPowerStart + p.cfg.TxGain }

// State reports what the radio is doing right now.
func (p *Phy) State() PhyState {
	now := p.sim.Now()
	switch {
	case now < p.txEnd:
		return PhyTx
	case p.rx != nil:
		return PhyRx
	case now < p.busyUntil:
		return PhyCcaBusy
	}
	return PhyIdle
}

// IsBusy reports whether the medium is sensed busy.
func (p *Phy) IsBusy() bool {
	return p.State() != PhyIdle
}

// BusyUntil is the earliest time the medium could be idle again.
func (p *Phy) BusyUntil() int64 {
	return max(p.busyUntil, p.txEnd)
}

// Send puts f on the air and returns its airtime. A reception in progress
// is lost.
func (p *Phy) Send(f *Frame) int64 {
	now := p.sim.Now()
	duration := p.std.TxDuration(f.Size())
	if p.rx != nil && !p.rx.failed {
		p.rx.failed = true
		p.rx.reason = metrics.ReasonTransmitting
	}
	p.txEnd = max(p.txEnd, now+duration)
	p.busyUntil = max(p.busyUntil, p.txEnd)
	p.metrics.PhyTx(p.nodeID)

	ev := TxEvent{Time: now, NodeID: p.nodeID, DeviceID: p.deviceID, Frame: f, Duration: duration, TxPowerDbm: p.TxPowerDbm()}
	for _, fn := range p.txSniffers {
		fn(ev)
	}
	simlog.At(simlog.WifiPhy, now).Debugf("node %d tx %v duration %s", p.nodeID, f, sim.FormatTime(duration))
	if p.channel != nil {
		p.channel.send(p, f, p.TxPowerDbm(), duration)
	}
	return duration
}

// startReceive is called by the channel when the first bit of f arrives.
func (p *Phy) startReceive(f *Frame, rxPowerDbm float64, duration int64) {
	now := p.sim.Now()
	end := now + duration
	if rxPowerDbm < p.cfg.RxSensitivity {
		p.drop(f, metrics.ReasonBelowSensitivity)
		return
	}
	p.busyUntil = max(p.busyUntil, end)
	switch {
	case now < p.txEnd:
		p.drop(f, metrics.ReasonTransmitting)
		return
	case p.rx != nil:
		if !p.rx.failed {
			p.rx.failed = true
			p.rx.reason = metrics.ReasonCollision
		}
		p.drop(f, metrics.ReasonCollision)
		return
	}
	r := &reception{frame: f, rxPowerDbm: rxPowerDbm, end: end}
	p.rx = r
	p.sim.ScheduleAt(end, func() { p.endReceive(r) })
}

func (p *Phy) endReceive(r *reception) {
	if p.rx != r {
		return
	}
	p.rx = nil
	if r.failed {
		p.drop(r.frame, r.reason)
		return
	}
	snrDb := r.rxPowerDbm - p.NoiseFloorDbm()
	psr := p.errors.SuccessRate(DbToRatio(snrDb), 8*r.frame.Size())
	if psr < 1 && p.rng.Float64() >= psr {
		p.drop(r.frame, metrics.ReasonPayloadError)
		return
	}
	p.metrics.PhyRx(p.nodeID)
	ev := RxEvent{Time: p.sim.Now(), NodeID: p.nodeID, DeviceID: p.deviceID, Frame: r.frame, RxPowerDbm: r.rxPowerDbm, SnrDb: snrDb}
	for _, fn := range p.rxSniffers {
		fn(ev)
	}
	if p.receiver != nil {
		p.receiver(r.frame, ev)
	}
}

func (p *Phy) drop(f *Frame, reason string) {
	now := p.sim.Now()
	p.metrics.PhyDrop(p.nodeID, reason)
	if reason != metrics.ReasonBelowSensitivity {
		simlog.At(simlog.WifiPhy, now).Warnf("node %d dropped %v: %s", p.nodeID, f.Type, reason)
	}
	ev := DropEvent{Time: now, NodeID: p.nodeID, DeviceID: p.deviceID, Frame: f, Reason: reason}
	for _, fn := range p.dropSniffers {
		fn(ev)
	}
}
