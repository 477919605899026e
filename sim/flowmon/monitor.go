package flowmon

import (
	"sort"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/inet"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
)

// DefaultMaxPerHopDelay is how long a packet may stay unaccounted for before
// it is declared lost.
const DefaultMaxPerHopDelay = 10 * sim.Second

const tagName = "flowmon"

// probeTag rides along with a classified packet.
type probeTag struct {
	flow     FlowID
	packetID uint32
	size     int
	sendTime int64
}

func (probeTag) TagName() string { return tagName }

// FlowStats accumulates the measurements of one flow. Times and delays are
// in ticks.
type FlowStats struct {
	ID    FlowID
	Tuple FiveTuple

	TimeFirstTxPacket int64
	TimeLastTxPacket  int64
	TimeFirstRxPacket int64
	TimeLastRxPacket  int64
	DelaySum          int64
	JitterSum         int64
	LastDelay         int64

	TxBytes     uint64
	RxBytes     uint64
	TxPackets   uint32
	RxPackets   uint32
	LostPackets uint32

	// Delays holds every per-packet delay in arrival order.
	Delays []int64
	// PacketsDropped counts packets dropped on the way, by reason.
	PacketsDropped map[string]uint32
}

type trackedKey struct {
	flow     FlowID
	packetID uint32
}

type trackedPacket struct {
	firstSeen int64
	lastSeen  int64
}

// Monitor records flow statistics from the stacks it is installed on.
type Monitor struct {
	sim        *sim.Simulator
	classifier *Classifier
	stats      map[FlowID]*FlowStats
	tracked    map[trackedKey]*trackedPacket
}

// NewMonitor creates a monitor with its own classifier.
func NewMonitor(s *sim.Simulator) *Monitor {
	return &Monitor{
		sim:        s,
		classifier: NewClassifier(),
		stats:      make(map[FlowID]*FlowStats),
		tracked:    make(map[trackedKey]*trackedPacket),
	}
}

// Classifier exposes the flow classifier.
func (m *Monitor) Classifier() *Classifier { return m.classifier }

// Install hooks the monitor into each stack.
func (m *Monitor) Install(stacks ...*inet.Stack) {
	for _, st := range stacks {
		st.AddHooks(inet.Hooks{
			SendOutgoing: func(p *packet.Packet, _ int) { m.reportFirstTx(p) },
			LocalDeliver: func(p *packet.Packet, _ int) { m.reportLastRx(p) },
			Drop:         m.reportDrop,
		})
	}
}

func (m *Monitor) flow(id FlowID) *FlowStats {
	st, ok := m.stats[id]
	if !ok {
		tuple, _ := m.classifier.Tuple(id)
		st = &FlowStats{ID: id, Tuple: tuple, PacketsDropped: map[string]uint32{}}
		m.stats[id] = st
	}
	return st
}

func (m *Monitor) reportFirstTx(p *packet.Packet) {
	id, pid, ok := m.classifier.Classify(p)
	if !ok {
		return
	}
	now := m.sim.Now()
	size := p.Size()
	p.AddTag(probeTag{flow: id, packetID: pid, size: size, sendTime: now})
	m.tracked[trackedKey{id, pid}] = &trackedPacket{firstSeen: now, lastSeen: now}

	st := m.flow(id)
	if st.TxPackets == 0 {
		st.TimeFirstTxPacket = now
	}
	st.TimeLastTxPacket = now
	st.TxPackets++
	st.TxBytes += uint64(size)
	simlog.At(simlog.FlowMonitor, now).Debugf("flow %d packet %d sent (%d bytes)", id, pid, size)
}

func (m *Monitor) reportLastRx(p *packet.Packet) {
	t, ok := p.FindTag(tagName)
	if !ok {
		return
	}
	tag := t.(probeTag)
	key := trackedKey{tag.flow, tag.packetID}
	tp, ok := m.tracked[key]
	if !ok {
		// already delivered, or declared lost
		return
	}
	delete(m.tracked, key)

	now := m.sim.Now()
	delay := now - tp.firstSeen
	st := m.flow(tag.flow)
	st.DelaySum += delay
	st.Delays = append(st.Delays, delay)
	if st.RxPackets > 0 {
		jitter := st.LastDelay - delay
		if jitter < 0 {
			jitter = -jitter
		}
		st.JitterSum += jitter
	}
	st.LastDelay = delay
	st.RxBytes += uint64(tag.size)
	st.RxPackets++
	if st.RxPackets == 1 {
		st.TimeFirstRxPacket = now
	}
	st.TimeLastRxPacket = now
	simlog.At(simlog.FlowMonitor, now).Debugf("flow %d packet %d received, delay %s", tag.flow, tag.packetID, sim.FormatTime(delay))
}

func (m *Monitor) reportDrop(p *packet.Packet, reason string) {
	t, ok := p.FindTag(tagName)
	if !ok {
		return
	}
	tag := t.(probeTag)
	key := trackedKey{tag.flow, tag.packetID}
	if _, ok := m.tracked[key]; !ok {
		return
	}
	delete(m.tracked, key)
	m.flow(tag.flow).PacketsDropped[reason]++
}

// CheckForLostPackets declares lost every packet that has been in flight
// for at least maxDelay.
func (m *Monitor) CheckForLostPackets(maxDelay int64) {
	now := m.sim.Now()
	for key, tp := range m.tracked {
		if now-tp.lastSeen >= maxDelay {
			m.flow(key.flow).LostPackets++
			delete(m.tracked, key)
		}
	}
}

// InFlight is the number of packets sent but not yet accounted for.
func (m *Monitor) InFlight() int { return len(m.tracked) }

// FlowStats returns a snapshot of every flow, sorted by id.
func (m *Monitor) FlowStats() []FlowStats {
	out := make([]FlowStats, 0, len(m.stats))
	for _, st := range m.stats {
		c := *st
		c.Delays = append([]int64(nil), st.Delays...)
		c.PacketsDropped = make(map[string]uint32, len(st.PacketsDropped))
		for k, v := range st.PacketsDropped {
			c.PacketsDropped[k] = v
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
