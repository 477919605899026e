// Package flowmon measures per-flow delivery, delay and jitter by observing
// datagrams as they leave their source stack and arrive at their
// destination.
package flowmon

import (
	"fmt"
	"net"

	"github.com/vanet-sim/dsrc-sim/sim/packet"
)

// FlowID identifies a flow; the first flow seen is 1.
type FlowID uint32

// FiveTuple is the flow key.
type FiveTuple struct {
	Src      [4]byte
	Dst      [4]byte
	Protocol uint8
	SrcPort  uint16
	DstPort  uint16
}

func (t FiveTuple) SrcIP() net.IP { return net.IP(t.Src[:]) }
func (t FiveTuple) DstIP() net.IP { return net.IP(t.Dst[:]) }

func (t FiveTuple) String() string {
	return fmt.Sprintf("%v:%d > %v:%d proto %d", t.SrcIP(), t.SrcPort, t.DstIP(), t.DstPort, t.Protocol)
}

// Classifier maps five-tuples to flow ids in order of first appearance.
type Classifier struct {
	flows   map[FiveTuple]FlowID
	tuples  []FiveTuple
	packets map[FlowID]uint32
}

// NewClassifier returns an empty classifier.
func NewClassifier() *Classifier {
	return &Classifier{
		flows:   make(map[FiveTuple]FlowID),
		packets: make(map[FlowID]uint32),
	}
}

// Classify returns the flow of p and a packet id unique within it. Only
// IPv4/UDP packets are classified.
func (c *Classifier) Classify(p *packet.Packet) (FlowID, uint32, bool) {
	if p.IPv4 == nil || p.UDP == nil {
		return 0, 0, false
	}
	var t FiveTuple
	copy(t.Src[:], p.IPv4.SrcIP.To4())
	copy(t.Dst[:], p.IPv4.DstIP.To4())
	t.Protocol = uint8(p.IPv4.Protocol)
	t.SrcPort = uint16(p.UDP.SrcPort)
	t.DstPort = uint16(p.UDP.DstPort)

	id, ok := c.flows[t]
	if !ok {
		c.tuples = append(c.tuples, t)
		id = FlowID(len(c.tuples))
		c.flows[t] = id
	}
	pid := c.packets[id]
	c.packets[id] = pid + 1
	return id, pid, true
}

// Tuple returns the five-tuple of flow id.
func (c *Classifier) Tuple(id FlowID) (FiveTuple, bool) {
	if id == 0 || int(id) > len(c.tuples) {
		return FiveTuple{}, false
	}
	return c.tuples[id-1], true
}
