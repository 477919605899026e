// Package inet is a minimal IPv4 stack: interface addressing, ARP and UDP
// sockets, with trace hooks for the flow monitor.
package inet

import (
	"encoding/binary"
	"fmt"
	"net"
)

// AddressHelper assigns consecutive host addresses from a network.
type AddressHelper struct {
	network net.IP
	mask    net.IPMask
	next    uint32
}

// SetBase sets the network and mask; the first address handed out is .1.
func (h *AddressHelper) SetBase(network, mask string) error {
	ip := net.ParseIP(network).To4()
	if ip == nil {
		return fmt.Errorf("invalid ipv4 network %q", network)
	}
	m := net.ParseIP(mask).To4()
	if m == nil {
		return fmt.Errorf("invalid ipv4 mask %q", mask)
	}
	h.mask = net.IPMask(m)
	ones, bits := h.mask.Size()
	if ones == 0 && bits == 0 {
		return fmt.Errorf("non-canonical ipv4 mask %q", mask)
	}
	if bits-ones < 2 {
		return fmt.Errorf("ipv4 mask %q leaves no host addresses", mask)
	}
	h.network = ip.Mask(h.mask)
	h.next = 1
	return nil
}

// HostCount is the number of assignable host addresses under mask, which
// excludes the network and broadcast addresses.
func HostCount(mask net.IPMask) int {
	ones, bits := mask.Size()
	if bits-ones < 2 {
		return 0
	}
	return 1<<uint(bits-ones) - 2
}

// NewAddress returns the next host address of the network.
func (h *AddressHelper) NewAddress() (*net.IPNet, error) {
	if h.network == nil {
		return nil, fmt.Errorf("address helper has no base network")
	}
	ones, _ := h.mask.Size()
	if int(h.next) > HostCount(h.mask) {
		return nil, fmt.Errorf("network %v/%d exhausted", h.network, ones)
	}
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, binary.BigEndian.Uint32(h.network)+h.next)
	h.next++
	return &net.IPNet{IP: ip, Mask: h.mask}, nil
}

// Broadcast returns the directed broadcast address of n.
func Broadcast(n *net.IPNet) net.IP {
	ip := n.IP.To4()
	b := make(net.IP, 4)
	for i := range b {
		b[i] = ip[i] | ^n.Mask[i]
	}
	return b
}

// Assign brings up dev on stack with the next host address.
func (h *AddressHelper) Assign(stack *Stack, dev Device) (*Interface, error) {
	a, err := h.NewAddress()
	if err != nil {
		return nil, err
	}
	return stack.AddInterface(dev, a), nil
}
