package inet

import (
	"fmt"
	"net"

	gplayers "github.com/google/gopacket/layers"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
)

const (
	DefaultTTL          = 64
	FirstEphemeralPort  = 49153
	LastEphemeralPort   = 65535
	ReasonNotForUs      = "not_for_us"
	ReasonTTLExpired    = "ttl_expired"
	ReasonArpFailed     = "arp_failed"
	ReasonDeviceRefused = "device_refused"
)

// Device is the link-layer interface the stack sends through.
type Device interface {
	NodeID() int
	Index() int
	HardwareAddr() net.HardwareAddr
	BroadcastAddr() net.HardwareAddr
	Send(p *packet.Packet, dst net.HardwareAddr) error
	SetReceiveCallback(func(p *packet.Packet, src, dst net.HardwareAddr))
}

// Interface is one addressed device of a node.
type Interface struct {
	Index   int
	Device  Device
	Address *net.IPNet
	arp     *arpCache
}

// Broadcast is the directed broadcast address of the interface.
func (i *Interface) Broadcast() net.IP {
	return Broadcast(i.Address)
}

// Hooks observe the datagrams flowing through a stack. Each hook receives
// the packet and the index of the interface involved.
type Hooks struct {
	SendOutgoing func(p *packet.Packet, iface int)
	LocalDeliver func(p *packet.Packet, iface int)
	Drop         func(p *packet.Packet, reason string)
}

// Stack is the IPv4/ARP/UDP stack of one node.
type Stack struct {
	sim     *sim.Simulator
	nodeID  int
	uids    *packet.UIDGenerator
	metrics *metrics.Registry

	ifaces         []*Interface
	sockets        map[uint16]*UDPSocket
	nextEphemeral  uint16
	identification uint16
	hooks          []Hooks
	arpConfig      ArpConfig
}

// NewStack creates an empty stack for node nodeID.
func NewStack(s *sim.Simulator, nodeID int, uids *packet.UIDGenerator, reg *metrics.Registry) *Stack {
	return &Stack{
		sim:           s,
		nodeID:        nodeID,
		uids:          uids,
		metrics:       reg,
		sockets:       make(map[uint16]*UDPSocket),
		nextEphemeral: FirstEphemeralPort,
		arpConfig:     DefaultArpConfig(),
	}
}

// NodeID returns the owning node.
func (s *Stack) NodeID() int { return s.nodeID }

// SetArpConfig overrides the ARP timers.
func (s *Stack) SetArpConfig(c ArpConfig) { s.arpConfig = c }

// AddHooks registers trace hooks; nil members are ignored.
func (s *Stack) AddHooks(h Hooks) { s.hooks = append(s.hooks, h) }

// Interfaces returns the configured interfaces.
func (s *Stack) Interfaces() []*Interface { return s.ifaces }

// AddInterface brings up dev with address addr.
func (s *Stack) AddInterface(dev Device, addr *net.IPNet) *Interface {
	iface := &Interface{
		Index:   len(s.ifaces),
		Device:  dev,
		Address: addr,
		arp:     newArpCache(),
	}
	s.ifaces = append(s.ifaces, iface)
	dev.SetReceiveCallback(func(p *packet.Packet, src, dst net.HardwareAddr) {
		s.receive(iface, p, src)
	})
	simlog.At(simlog.Ipv4Interface, s.sim.Now()).Infof("node %d interface %d up: %v", s.nodeID, iface.Index, addr)
	return iface
}

// Address returns the address of interface i.
func (s *Stack) Address(i int) net.IP {
	return s.ifaces[i].Address.IP
}

func (s *Stack) route(dst net.IP) (*Interface, bool) {
	for _, iface := range s.ifaces {
		if iface.Address.Contains(dst) || dst.Equal(net.IPv4bcast) {
			return iface, true
		}
	}
	return nil, false
}

// sendUDP builds and sends one UDP datagram.
func (s *Stack) sendUDP(srcPort uint16, dst net.IP, dstPort uint16, payload []byte) error {
	iface, ok := s.route(dst)
	if !ok {
		p := s.newDatagram(nil, srcPort, dst, dstPort, payload)
		s.drop(p, metrics.ReasonNoRoute)
		return fmt.Errorf("no route to %v", dst)
	}
	p := s.newDatagram(iface, srcPort, dst, dstPort, payload)
	for _, h := range s.hooks {
		if h.SendOutgoing != nil {
			h.SendOutgoing(p, iface.Index)
		}
	}
	return s.output(iface, p)
}

func (s *Stack) newDatagram(iface *Interface, srcPort uint16, dst net.IP, dstPort uint16, payload []byte) *packet.Packet {
	p := packet.NewUDP(s.uids.Next(), payload)
	if iface != nil {
		p.IPv4.SrcIP = iface.Address.IP.To4()
	} else {
		p.IPv4.SrcIP = net.IPv4zero.To4()
	}
	p.IPv4.DstIP = dst.To4()
	p.IPv4.TTL = DefaultTTL
	p.IPv4.Id = s.identification
	s.identification++
	p.UDP.SrcPort = gplayers.UDPPort(srcPort)
	p.UDP.DstPort = gplayers.UDPPort(dstPort)
	return p
}

func (s *Stack) output(iface *Interface, p *packet.Packet) error {
	dst := p.IPv4.DstIP
	if dst.Equal(net.IPv4bcast) || dst.Equal(iface.Broadcast()) {
		return s.deviceSend(iface, p, iface.Device.BroadcastAddr())
	}
	return s.resolveAndSend(iface, p)
}

func (s *Stack) deviceSend(iface *Interface, p *packet.Packet, dst net.HardwareAddr) error {
	if err := iface.Device.Send(p, dst); err != nil {
		s.drop(p, ReasonDeviceRefused)
		return err
	}
	return nil
}

func (s *Stack) receive(iface *Interface, p *packet.Packet, src net.HardwareAddr) {
	if p.ARP != nil {
		s.receiveArp(iface, p, src)
		return
	}
	if p.IPv4 == nil {
		return
	}
	dst := p.IPv4.DstIP
	if !dst.Equal(iface.Address.IP) && !dst.Equal(iface.Broadcast()) && !dst.Equal(net.IPv4bcast) {
		s.drop(p, ReasonNotForUs)
		return
	}
	if p.IPv4.TTL == 0 {
		s.drop(p, ReasonTTLExpired)
		return
	}
	for _, h := range s.hooks {
		if h.LocalDeliver != nil {
			h.LocalDeliver(p, iface.Index)
		}
	}
	if p.UDP == nil {
		return
	}
	sock, ok := s.sockets[uint16(p.UDP.DstPort)]
	if !ok {
		s.drop(p, metrics.ReasonNoSocket)
		return
	}
	sock.deliver(p)
}

func (s *Stack) drop(p *packet.Packet, reason string) {
	s.metrics.IPDrop(s.nodeID, reason)
	simlog.At(simlog.Ipv4Interface, s.sim.Now()).Debugf("node %d dropped %v: %s", s.nodeID, p, reason)
	for _, h := range s.hooks {
		if h.Drop != nil {
			h.Drop(p, reason)
		}
	}
}
