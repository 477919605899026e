// Package packet defines the unit of data handed between the simulated
// protocol layers. Headers are gopacket layer structs so the same packet can
// be encoded byte-exactly for pcap traces.
package packet

import (
	"fmt"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
)

const (
	IPv4HeaderSize = 20
	UDPHeaderSize  = 8
	ARPSize        = 28
)

// Tag is metadata that travels with a packet but is not part of its bytes.
type Tag interface {
	TagName() string
}

// Packet is an ARP message or an IPv4/UDP datagram with an opaque payload.
type Packet struct {
	UID     uint64
	ARP     *gplayers.ARP
	IPv4    *gplayers.IPv4
	UDP     *gplayers.UDP
	Payload []byte
	tags    []Tag
}

// UIDGenerator hands out packet UIDs. A scenario owns one generator so UIDs
// are reproducible across runs.
type UIDGenerator struct {
	next uint64
}

func (g *UIDGenerator) Next() uint64 {
	g.next++
	return g.next
}

// NewUDP builds an IPv4/UDP datagram carrying payload. Callers fill in the
// addresses and ports on the returned headers.
func NewUDP(uid uint64, payload []byte) *Packet {
	return &Packet{
		UID:     uid,
		IPv4:    &gplayers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: gplayers.IPProtocolUDP},
		UDP:     &gplayers.UDP{},
		Payload: payload,
	}
}

// NewARP wraps an ARP message.
func NewARP(uid uint64, arp *gplayers.ARP) *Packet {
	return &Packet{UID: uid, ARP: arp}
}

// EtherType returns the protocol carried by the link layer.
func (p *Packet) EtherType() gplayers.EthernetType {
	if p.ARP != nil {
		return gplayers.EthernetTypeARP
	}
	return gplayers.EthernetTypeIPv4
}

// Size is the number of bytes above the link layer.
func (p *Packet) Size() int {
	if p.ARP != nil {
		return ARPSize
	}
	n := len(p.Payload)
	if p.UDP != nil {
		n += UDPHeaderSize
	}
	if p.IPv4 != nil {
		n += IPv4HeaderSize
	}
	return n
}

// Copy returns an independent copy; the payload is shared since no layer
// mutates it.
func (p *Packet) Copy() *Packet {
	c := &Packet{UID: p.UID, Payload: p.Payload}
	if p.ARP != nil {
		arp := *p.ARP
		c.ARP = &arp
	}
	if p.IPv4 != nil {
		ip := *p.IPv4
		c.IPv4 = &ip
	}
	if p.UDP != nil {
		udp := *p.UDP
		c.UDP = &udp
	}
	c.tags = append([]Tag(nil), p.tags...)
	return c
}

// AddTag attaches t, replacing any tag with the same name.
func (p *Packet) AddTag(t Tag) {
	for i, existing := range p.tags {
		if existing.TagName() == t.TagName() {
			p.tags[i] = t
			return
		}
	}
	p.tags = append(p.tags, t)
}

// FindTag returns the tag with the given name.
func (p *Packet) FindTag(name string) (Tag, bool) {
	for _, t := range p.tags {
		if t.TagName() == name {
			return t, true
		}
	}
	return nil, false
}

// Layers returns the serializable layers from the network layer up.
func (p *Packet) Layers() ([]gopacket.SerializableLayer, error) {
	if p.ARP != nil {
		return []gopacket.SerializableLayer{p.ARP}, nil
	}
	if p.IPv4 == nil {
		return nil, fmt.Errorf("packet %d has neither ARP nor IPv4 header", p.UID)
	}
	ls := []gopacket.SerializableLayer{p.IPv4}
	if p.UDP != nil {
		if err := p.UDP.SetNetworkLayerForChecksum(p.IPv4); err != nil {
			return nil, fmt.Errorf("error setting network layer for checksum: %w", err)
		}
		ls = append(ls, p.UDP)
	}
	return append(ls, gopacket.Payload(p.Payload)), nil
}

// Serialize encodes the packet with lengths and checksums fixed.
func (p *Packet) Serialize() ([]byte, error) {
	ls, err := p.Layers()
	if err != nil {
		return nil, err
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		return nil, fmt.Errorf("error serializing packet %d: %w", p.UID, err)
	}
	return buf.Bytes(), nil
}

// String is a one-line summary used by logs and ascii traces.
func (p *Packet) String() string {
	switch {
	case p.ARP != nil:
		op := "request"
		if p.ARP.Operation == gplayers.ARPReply {
			op = "reply"
		}
		return fmt.Sprintf("ARP(%s) %v > %v", op, ipString(p.ARP.SourceProtAddress), ipString(p.ARP.DstProtAddress))
	case p.UDP != nil:
		return fmt.Sprintf("IPv4 %v > %v ttl %d UDP %d > %d length %d",
			p.IPv4.SrcIP, p.IPv4.DstIP, p.IPv4.TTL, p.UDP.SrcPort, p.UDP.DstPort, len(p.Payload))
	case p.IPv4 != nil:
		return fmt.Sprintf("IPv4 %v > %v proto %v length %d", p.IPv4.SrcIP, p.IPv4.DstIP, p.IPv4.Protocol, len(p.Payload))
	}
	return fmt.Sprintf("raw length %d", len(p.Payload))
}

func ipString(b []byte) string {
	if len(b) != 4 {
		return "?"
	}
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}
