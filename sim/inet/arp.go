package inet

import (
	"net"

	gplayers "github.com/google/gopacket/layers"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
)

// ArpConfig holds the resolution timers.
type ArpConfig struct {
	AliveTimeout int64 // how long a resolved entry stays valid
	WaitReply    int64 // time between retransmitted requests
	MaxRetries   int
	PendingQueue int // packets held per unresolved address
}

// DefaultArpConfig mirrors the usual host defaults.
func DefaultArpConfig() ArpConfig {
	return ArpConfig{
		AliveTimeout: 120 * sim.Second,
		WaitReply:    sim.Second,
		MaxRetries:   3,
		PendingQueue: 3,
	}
}

type arpState int

const (
	arpWaitReply arpState = iota
	arpAlive
)

type arpEntry struct {
	state   arpState
	mac     net.HardwareAddr
	expires int64
	retries int
	pending []*packet.Packet
	timer   *sim.ScheduledEvent
}

type arpCache struct {
	entries map[string]*arpEntry
}

func newArpCache() *arpCache {
	return &arpCache{entries: make(map[string]*arpEntry)}
}

func (c *arpCache) lookup(ip net.IP) *arpEntry {
	return c.entries[ip.To4().String()]
}

func (c *arpCache) insert(ip net.IP) *arpEntry {
	e := &arpEntry{}
	c.entries[ip.To4().String()] = e
	return e
}

// Lookup returns the resolved hardware address of ip on interface i, if any.
func (s *Stack) Lookup(i int, ip net.IP) (net.HardwareAddr, bool) {
	e := s.ifaces[i].arp.lookup(ip)
	if e == nil || e.state != arpAlive || s.sim.Now() >= e.expires {
		return nil, false
	}
	return e.mac, true
}

func (s *Stack) resolveAndSend(iface *Interface, p *packet.Packet) error {
	dst := p.IPv4.DstIP
	e := iface.arp.lookup(dst)
	now := s.sim.Now()
	if e != nil && e.state == arpAlive && now < e.expires {
		return s.deviceSend(iface, p, e.mac)
	}
	if e != nil && e.state == arpWaitReply {
		if len(e.pending) >= s.arpConfig.PendingQueue {
			s.drop(p, ReasonArpFailed)
			return nil
		}
		e.pending = append(e.pending, p)
		return nil
	}
	if e == nil {
		e = iface.arp.insert(dst)
	}
	e.state = arpWaitReply
	e.retries = 0
	e.pending = append(e.pending[:0], p)
	s.sendArpRequest(iface, dst, e)
	return nil
}

func (s *Stack) sendArpRequest(iface *Interface, target net.IP, e *arpEntry) {
	dev := iface.Device
	req := &gplayers.ARP{
		AddrType:          gplayers.LinkTypeEthernet,
		Protocol:          gplayers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         gplayers.ARPRequest,
		SourceHwAddress:   []byte(dev.HardwareAddr()),
		SourceProtAddress: []byte(iface.Address.IP.To4()),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte(target.To4()),
	}
	s.metrics.ArpRequest(s.nodeID)
	simlog.At(simlog.Arp, s.sim.Now()).Debugf("node %d: who has %v tell %v", s.nodeID, target, iface.Address.IP)
	p := packet.NewARP(s.uids.Next(), req)
	if err := dev.Send(p, dev.BroadcastAddr()); err != nil {
		simlog.At(simlog.Arp, s.sim.Now()).Warnf("node %d: arp request not sent: %v", s.nodeID, err)
	}
	e.timer = s.sim.Schedule(s.arpConfig.WaitReply, func() {
		s.arpWaitReplyTimeout(iface, target, e)
	})
}

func (s *Stack) arpWaitReplyTimeout(iface *Interface, target net.IP, e *arpEntry) {
	if e.state != arpWaitReply {
		return
	}
	if e.retries >= s.arpConfig.MaxRetries {
		simlog.At(simlog.Arp, s.sim.Now()).Infof("node %d: no reply for %v, dropping %d queued packets", s.nodeID, target, len(e.pending))
		for _, p := range e.pending {
			s.drop(p, ReasonArpFailed)
		}
		e.pending = nil
		delete(iface.arp.entries, target.To4().String())
		return
	}
	e.retries++
	s.sendArpRequest(iface, target, e)
}

func (s *Stack) receiveArp(iface *Interface, p *packet.Packet, src net.HardwareAddr) {
	a := p.ARP
	sender := net.IP(a.SourceProtAddress)
	senderMac := net.HardwareAddr(a.SourceHwAddress)
	target := net.IP(a.DstProtAddress)
	now := s.sim.Now()
	log := simlog.At(simlog.Arp, now)

	switch a.Operation {
	case gplayers.ARPRequest:
		if !target.Equal(iface.Address.IP) {
			return
		}
		log.Debugf("node %d: request from %v, replying", s.nodeID, sender)
		s.learn(iface, sender, senderMac)
		reply := &gplayers.ARP{
			AddrType:          gplayers.LinkTypeEthernet,
			Protocol:          gplayers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         gplayers.ARPReply,
			SourceHwAddress:   []byte(iface.Device.HardwareAddr()),
			SourceProtAddress: []byte(iface.Address.IP.To4()),
			DstHwAddress:      []byte(senderMac),
			DstProtAddress:    []byte(sender.To4()),
		}
		if err := iface.Device.Send(packet.NewARP(s.uids.Next(), reply), src); err != nil {
			log.Warnf("node %d: arp reply not sent: %v", s.nodeID, err)
		}
	case gplayers.ARPReply:
		if !target.Equal(iface.Address.IP) {
			return
		}
		log.Debugf("node %d: reply %v is-at %v", s.nodeID, sender, senderMac)
		s.learn(iface, sender, senderMac)
	}
}

// learn records sender as alive and flushes anything waiting on it.
func (s *Stack) learn(iface *Interface, ip net.IP, mac net.HardwareAddr) {
	e := iface.arp.lookup(ip)
	if e == nil {
		e = iface.arp.insert(ip)
	}
	e.state = arpAlive
	e.mac = append(net.HardwareAddr(nil), mac...)
	e.expires = s.sim.Now() + s.arpConfig.AliveTimeout
	e.timer.Cancel()
	e.timer = nil
	pending := e.pending
	e.pending = nil
	for _, p := range pending {
		_ = s.deviceSend(iface, p, e.mac)
	}
}
