package wifi

import (
	"net"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/mobility"
)

// AddressAllocator hands out 00:00:00:00:00:01, 00:00:00:00:00:02, ...
type AddressAllocator struct {
	next uint64
}

func (a *AddressAllocator) Next() net.HardwareAddr {
	a.next++
	v := a.next
	addr := make(net.HardwareAddr, 6)
	for i := 5; i >= 0; i-- {
		addr[i] = byte(v)
		v >>= 8
	}
	return addr
}

// Helper installs identically configured wifi devices on nodes.
type Helper struct {
	Standard  Standard
	Phy       PhyConfig
	QueueSize int
	Errors    ErrorModel
	Metrics   *metrics.Registry

	addresses AddressAllocator
	bssid     net.HardwareAddr
}

// NewHelper returns a helper for std with the default radio attributes.
func NewHelper(std Standard, reg *metrics.Registry) *Helper {
	return &Helper{
		Standard:  std,
		Phy:       DefaultPhyConfig(),
		QueueSize: DefaultQueueSize,
		Metrics:   reg,
		bssid:     net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	}
}

// Install creates device 0 of node nodeID and attaches it to channel.
func (h *Helper) Install(s *sim.Simulator, channel *Channel, nodeID int, mob mobility.Model) *NetDevice {
	if h.Metrics == nil {
		h.Metrics = metrics.New()
	}
	const deviceID = 0
	phy := NewPhy(s, nodeID, deviceID, h.Standard, h.Phy, mob, h.Metrics)
	if h.Errors != nil {
		phy.SetErrorModel(h.Errors)
	}
	channel.Add(phy)
	addr := h.addresses.Next()
	dev := &NetDevice{
		nodeID:   nodeID,
		deviceID: deviceID,
		address:  addr,
		phy:      phy,
	}
	dev.mac = NewAdhocMac(s, nodeID, phy, addr, h.bssid, h.QueueSize, h.Metrics)
	dev.mac.SetForwardUpCallback(dev.forwardUp)
	return dev
}
