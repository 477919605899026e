package wifi

import (
	"fmt"
	"net"

	"github.com/vanet-sim/dsrc-sim/sim/packet"
)

// NetDevice is a wifi interface of a node: a MAC address, a MAC and a PHY.
type NetDevice struct {
	nodeID   int
	deviceID int
	address  net.HardwareAddr
	mac      *AdhocMac
	phy      *Phy

	rxCallback func(p *packet.Packet, src, dst net.HardwareAddr)
}

// NodeID returns the owning node.
func (d *NetDevice) NodeID() int { return d.nodeID }

// Index is the device index within its node.
func (d *NetDevice) Index() int { return d.deviceID }

// HardwareAddr returns the device MAC address.
func (d *NetDevice) HardwareAddr() net.HardwareAddr { return d.address }

// BroadcastAddr returns the link-layer broadcast address.
func (d *NetDevice) BroadcastAddr() net.HardwareAddr { return BroadcastAddr }

// Phy gives access to the radio, e.g. for tracing.
func (d *NetDevice) Phy() *Phy { return d.phy }

// Mac gives access to the MAC.
func (d *NetDevice) Mac() *AdhocMac { return d.mac }

// DefaultMTU is the largest packet a wifi device carries.
const DefaultMTU = 2296

// MTU is the largest packet the device carries.
func (d *NetDevice) MTU() int { return DefaultMTU }

// Send hands p to the MAC for delivery to dst.
func (d *NetDevice) Send(p *packet.Packet, dst net.HardwareAddr) error {
	if p.Size() > d.MTU() {
		return fmt.Errorf("packet of %d bytes exceeds MTU %d", p.Size(), d.MTU())
	}
	if !d.mac.Enqueue(p, dst) {
		return fmt.Errorf("device %d/%d: transmit queue full", d.nodeID, d.deviceID)
	}
	return nil
}

// SetReceiveCallback registers the network layer.
func (d *NetDevice) SetReceiveCallback(fn func(p *packet.Packet, src, dst net.HardwareAddr)) {
	d.rxCallback = fn
}

func (d *NetDevice) forwardUp(p *packet.Packet, src, dst net.HardwareAddr) {
	if d.rxCallback != nil {
		d.rxCallback(p, src, dst)
	}
}
