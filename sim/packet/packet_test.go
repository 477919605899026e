package packet

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTag struct{ v int }

func (testTag) TagName() string { return "test" }

func newEcho(t *testing.T) *Packet {
	t.Helper()
	p := NewUDP(1, make([]byte, 500))
	p.IPv4.SrcIP = net.IPv4(10, 1, 1, 1).To4()
	p.IPv4.DstIP = net.IPv4(10, 1, 1, 2).To4()
	p.UDP.SrcPort = 49153
	p.UDP.DstPort = 5000
	return p
}

func TestPacket_Size_CountsIPAndUDPHeaders(t *testing.T) {
	assert.Equal(t, 528, newEcho(t).Size())
	assert.Equal(t, ARPSize, NewARP(2, &gplayers.ARP{}).Size())
}

func TestPacket_Serialize_DecodesBack(t *testing.T) {
	// GIVEN a 500 byte UDP echo datagram
	p := newEcho(t)

	// WHEN serialized
	b, err := p.Serialize()
	require.NoError(t, err)
	require.Len(t, b, 528)

	// THEN gopacket decodes the same addresses and ports
	decoded := gopacket.NewPacket(b, gplayers.LayerTypeIPv4, gopacket.Default)
	ip, ok := decoded.Layer(gplayers.LayerTypeIPv4).(*gplayers.IPv4)
	require.True(t, ok)
	assert.Equal(t, "10.1.1.2", ip.DstIP.String())
	assert.Equal(t, uint16(528), ip.Length)
	udp, ok := decoded.Layer(gplayers.LayerTypeUDP).(*gplayers.UDP)
	require.True(t, ok)
	assert.Equal(t, gplayers.UDPPort(5000), udp.DstPort)
	assert.Equal(t, uint16(508), udp.Length)
}

func TestPacket_Copy_IsIndependent(t *testing.T) {
	p := newEcho(t)
	p.AddTag(testTag{v: 1})

	c := p.Copy()
	c.IPv4.TTL = 1
	c.AddTag(testTag{v: 2})

	assert.Equal(t, uint8(64), p.IPv4.TTL)
	tag, ok := p.FindTag("test")
	require.True(t, ok)
	assert.Equal(t, 1, tag.(testTag).v)
	tag, _ = c.FindTag("test")
	assert.Equal(t, 2, tag.(testTag).v)
}

func TestPacket_EtherTypeAndString(t *testing.T) {
	arp := NewARP(3, &gplayers.ARP{
		Operation:         gplayers.ARPRequest,
		SourceProtAddress: []byte{10, 1, 1, 1},
		DstProtAddress:    []byte{10, 1, 1, 2},
	})
	assert.Equal(t, gplayers.EthernetTypeARP, arp.EtherType())
	assert.Equal(t, "ARP(request) 10.1.1.1 > 10.1.1.2", arp.String())
	assert.Equal(t, gplayers.EthernetTypeIPv4, newEcho(t).EtherType())
	assert.Contains(t, newEcho(t).String(), "UDP 49153 > 5000")
}

func TestPacket_SerializeWithoutHeaders_Fails(t *testing.T) {
	_, err := (&Packet{UID: 9}).Serialize()
	assert.Error(t, err)
}
