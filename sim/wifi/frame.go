package wifi

import (
	"bytes"
	"fmt"
	"net"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"

	"github.com/vanet-sim/dsrc-sim/sim/packet"
)

// FrameType distinguishes data frames from ACKs.
type FrameType int

const (
	FrameData FrameType = iota
	FrameAck
)

func (t FrameType) String() string {
	if t == FrameAck {
		return "CTL_ACK"
	}
	return "DATA"
}

const (
	DataHeaderSize = 24
	LLCSNAPSize    = 8
	FCSSize        = 4
	AckSize        = 14
)

// BroadcastAddr is ff:ff:ff:ff:ff:ff.
var BroadcastAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Frame is an MPDU on the air.
type Frame struct {
	Type     FrameType
	Dst      net.HardwareAddr // receiver address
	Src      net.HardwareAddr // transmitter address, nil for ACKs
	BSSID    net.HardwareAddr
	Sequence uint16
	Retry    bool
	Packet   *packet.Packet
}

// Size is the MPDU size in bytes, FCS included.
func (f *Frame) Size() int {
	if f.Type == FrameAck {
		return AckSize
	}
	return DataHeaderSize + LLCSNAPSize + f.Packet.Size() + FCSSize
}

// IsBroadcast reports whether the frame is addressed to everyone.
func (f *Frame) IsBroadcast() bool {
	return bytes.Equal(f.Dst, BroadcastAddr)
}

// Copy duplicates the frame and its packet so each receiver gets its own.
func (f *Frame) Copy() *Frame {
	c := *f
	if f.Packet != nil {
		c.Packet = f.Packet.Copy()
	}
	return &c
}

// Serialize encodes a data frame as 802.11 header + LLC/SNAP + packet,
// without FCS, which is what an IEEE 802.11 pcap link type expects.
func (f *Frame) Serialize() ([]byte, error) {
	if f.Type != FrameData {
		return nil, fmt.Errorf("only data frames can be serialized, got %v", f.Type)
	}
	var flags gplayers.Dot11Flags
	if f.Retry {
		flags |= gplayers.Dot11FlagsRetry
	}
	dot11 := &gplayers.Dot11{
		Type:           gplayers.Dot11TypeData,
		Flags:          flags,
		Address1:       f.Dst,
		Address2:       f.Src,
		Address3:       f.BSSID,
		SequenceNumber: f.Sequence,
	}
	llc := &gplayers.LLC{DSAP: 0xaa, SSAP: 0xaa, Control: 0x03}
	snap := &gplayers.SNAP{OrganizationalCode: []byte{0, 0, 0}, Type: f.Packet.EtherType()}
	upper, err := f.Packet.Layers()
	if err != nil {
		return nil, err
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	ls := append([]gopacket.SerializableLayer{dot11, llc, snap}, upper...)
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		return nil, fmt.Errorf("error serializing frame: %w", err)
	}
	return buf.Bytes(), nil
}

// String summarizes the frame for ascii traces.
func (f *Frame) String() string {
	if f.Type == FrameAck {
		return fmt.Sprintf("%v RA=%v Size=%d", f.Type, f.Dst, f.Size())
	}
	retry := ""
	if f.Retry {
		retry = " retry"
	}
	return fmt.Sprintf("%v DA=%v SA=%v BSSID=%v Seq=%d%s Size=%d %v",
		f.Type, f.Dst, f.Src, f.BSSID, f.Sequence, retry, f.Size(), f.Packet)
}
