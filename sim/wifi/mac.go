package wifi

import (
	"bytes"
	"math/rand"
	"net"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
)

// DefaultQueueSize bounds the MAC transmit queue.
const DefaultQueueSize = 500

type txItem struct {
	frame   *Frame
	retries int
}

// AdhocMac is a single-queue CSMA/CA MAC for an independent BSS: wait for an
// idle medium plus AIFS, count down a random backoff, transmit, and for
// unicast frames wait for an ACK, doubling the contention window on every
// timeout until the retry limit.
type AdhocMac struct {
	sim     *sim.Simulator
	nodeID  int
	std     Standard
	phy     *Phy
	address net.HardwareAddr
	bssid   net.HardwareAddr
	rng     *rand.Rand
	metrics *metrics.Registry

	queue     []*txItem
	queueSize int
	current   *txItem
	cw        int
	backoff   int // remaining slots, -1 when a fresh draw is due
	access    *sim.ScheduledEvent
	ackTimer  *sim.ScheduledEvent
	ackDue    int64 // an ACK owed to a sender goes on the air at this time
	sequence  uint16
	lastSeq   map[string]uint16

	forwardUp func(p *packet.Packet, src, dst net.HardwareAddr)
}

// NewAdhocMac creates the MAC of one device and hooks it to its PHY.
func NewAdhocMac(s *sim.Simulator, nodeID int, phy *Phy, address, bssid net.HardwareAddr, queueSize int, reg *metrics.Registry) *AdhocMac {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	m := &AdhocMac{
		sim:       s,
		nodeID:    nodeID,
		std:       phy.Standard(),
		phy:       phy,
		address:   address,
		bssid:     bssid,
		rng:       s.RNG.Get(sim.MacStream(nodeID)),
		metrics:   reg,
		queueSize: queueSize,
		cw:        phy.Standard().CWMin,
		backoff:   -1,
		ackDue:    -1,
		lastSeq:   make(map[string]uint16),
	}
	phy.SetReceiveCallback(m.receive)
	return m
}

// SetForwardUpCallback registers the consumer of received packets.
func (m *AdhocMac) SetForwardUpCallback(fn func(p *packet.Packet, src, dst net.HardwareAddr)) {
	m.forwardUp = fn
}

func (m *AdhocMac) Address() net.HardwareAddr { return m.address }

// QueueLen is the number of frames waiting behind the one in service.
func (m *AdhocMac) QueueLen() int { return len(m.queue) }

// ContentionWindow returns the current CW.
func (m *AdhocMac) ContentionWindow() int { return m.cw }

// Enqueue queues p for dst. It returns false when the queue is full.
func (m *AdhocMac) Enqueue(p *packet.Packet, dst net.HardwareAddr) bool {
	if len(m.queue) >= m.queueSize {
		m.metrics.MacDrop(m.nodeID, metrics.ReasonQueueFull)
		simlog.At(simlog.WifiMac, m.sim.Now()).Warnf("node %d queue full, dropping %v", m.nodeID, p)
		return false
	}
	f := &Frame{
		Type:     FrameData,
		Dst:      dst,
		Src:      m.address,
		BSSID:    m.bssid,
		Sequence: m.sequence,
		Packet:   p,
	}
	m.sequence = (m.sequence + 1) % 4096
	m.queue = append(m.queue, &txItem{frame: f})
	m.startNext()
	return true
}

func (m *AdhocMac) startNext() {
	if m.current != nil || len(m.queue) == 0 {
		return
	}
	m.current = m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.requestAccess()
}

func (m *AdhocMac) requestAccess() {
	if m.backoff < 0 {
		m.backoff = m.rng.Intn(m.cw + 1)
	}
	start := max(m.sim.Now(), m.phy.BusyUntil(), m.ackDue) + m.std.Aifs() + int64(m.backoff)*m.std.Slot
	m.access = m.sim.ScheduleAt(start, m.onAccess)
}

func (m *AdhocMac) onAccess() {
	if m.current == nil {
		return
	}
	if m.phy.IsBusy() || m.sim.Now() <= m.ackDue {
		m.requestAccess()
		return
	}
	m.backoff = -1
	f := m.current.frame
	duration := m.phy.Send(f)
	if f.IsBroadcast() {
		m.sim.Schedule(duration, m.finish)
		return
	}
	m.ackTimer = m.sim.Schedule(duration+m.std.AckTimeout(), m.onAckTimeout)
}

func (m *AdhocMac) onAckTimeout() {
	item := m.current
	item.retries++
	log := simlog.At(simlog.WifiMac, m.sim.Now())
	if item.retries > m.std.RetryLimit {
		m.metrics.MacDrop(m.nodeID, metrics.ReasonRetryLimit)
		log.Warnf("node %d gave up on seq %d to %v after %d retries", m.nodeID, item.frame.Sequence, item.frame.Dst, m.std.RetryLimit)
		m.cw = m.std.CWMin
		m.finish()
		return
	}
	m.metrics.MacRetry(m.nodeID)
	log.Debugf("node %d ack timeout for seq %d, retry %d", m.nodeID, item.frame.Sequence, item.retries)
	item.frame.Retry = true
	m.cw = min(2*(m.cw+1)-1, m.std.CWMax)
	m.backoff = -1
	m.requestAccess()
}

func (m *AdhocMac) finish() {
	m.current = nil
	m.ackTimer = nil
	m.startNext()
}

func (m *AdhocMac) receive(f *Frame, _ RxEvent) {
	if f.Type == FrameAck {
		if bytes.Equal(f.Dst, m.address) && m.ackTimer.Pending() {
			m.ackTimer.Cancel()
			m.cw = m.std.CWMin
			m.finish()
		}
		return
	}
	if f.IsBroadcast() {
		m.deliver(f)
		return
	}
	if !bytes.Equal(f.Dst, m.address) {
		return
	}
	ack := &Frame{Type: FrameAck, Dst: f.Src}
	m.ackDue = m.sim.Now() + m.std.Sifs
	m.sim.Schedule(m.std.Sifs, func() { m.phy.Send(ack) })

	key := f.Src.String()
	if last, seen := m.lastSeq[key]; seen && f.Retry && last == f.Sequence {
		simlog.At(simlog.WifiMac, m.sim.Now()).Debugf("node %d duplicate seq %d from %v", m.nodeID, f.Sequence, f.Src)
		return
	}
	m.lastSeq[key] = f.Sequence
	m.deliver(f)
}

func (m *AdhocMac) deliver(f *Frame) {
	if m.forwardUp != nil {
		m.forwardUp(f.Packet, f.Src, f.Dst)
	}
}
