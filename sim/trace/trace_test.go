package trace

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/mobility"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/propagation"
	"github.com/vanet-sim/dsrc-sim/sim/wifi"
)

func twoDevices(t *testing.T) (*sim.Simulator, []*wifi.NetDevice) {
	t.Helper()
	s := sim.NewSimulator(1)
	reg := metrics.New()
	ch := wifi.NewChannel(s, propagation.NewFriis(wifi.Standard80211p.Frequency), propagation.NewConstantSpeed())
	h := wifi.NewHelper(wifi.Standard80211p, reg)
	devs := []*wifi.NetDevice{
		h.Install(s, ch, 0, mobility.NewConstantPosition(mobility.Vector{})),
		h.Install(s, ch, 1, mobility.NewConstantPosition(mobility.Vector{X: 50})),
	}
	return s, devs
}

func datagram() *packet.Packet {
	p := packet.NewUDP(1, make([]byte, 500))
	p.IPv4.SrcIP = net.IPv4(10, 1, 1, 1).To4()
	p.IPv4.DstIP = net.IPv4(10, 1, 1, 2).To4()
	p.UDP.SrcPort, p.UDP.DstPort = 49153, 5000
	return p
}

func TestTracer_WritesPcapAndAscii(t *testing.T) {
	// GIVEN a tracer on two devices writing into a temp dir
	dir := t.TempDir()
	s, devs := twoDevices(t)
	tr, err := NewTracer(Config{Dir: dir, PcapPrefix: "dsrc-sim", AsciiFile: "dsrc-trace.tr", Record: true})
	require.NoError(t, err)
	for _, d := range devs {
		require.NoError(t, tr.Attach(d))
	}

	// WHEN one unicast data frame is exchanged at t=1s
	s.ScheduleAt(sim.Second, func() {
		require.NoError(t, devs[0].Send(datagram(), devs[1].HardwareAddr()))
	})
	s.Run()
	require.NoError(t, tr.Close())

	// THEN each pcap holds the data frame once, as 802.11
	for node := 0; node < 2; node++ {
		f, err := os.Open(filepath.Join(dir, PcapFileName("dsrc-sim", node, 0)))
		require.NoError(t, err)
		r, err := pcapgo.NewReader(f)
		require.NoError(t, err)
		assert.Equal(t, layers.LinkTypeIEEE802_11, r.LinkType())
		data, ci, err := r.ReadPacketData()
		require.NoError(t, err)
		assert.Equal(t, 24+8+528, len(data))
		assert.Equal(t, byte(0x08), data[0])
		assert.GreaterOrEqual(t, ci.Timestamp.UnixNano(), sim.Second)

		ip := gopacket.NewPacket(data[32:], layers.LayerTypeIPv4, gopacket.Default)
		udp, ok := ip.Layer(layers.LayerTypeUDP).(*layers.UDP)
		require.True(t, ok)
		assert.Equal(t, layers.UDPPort(5000), udp.DstPort)

		_, _, err = r.ReadPacketData()
		assert.Error(t, err, "only one data frame per device")
		f.Close()
	}

	// AND the ascii trace has tx/rx for the data frame and its ACK
	f, err := os.Open(filepath.Join(dir, "dsrc-trace.tr"))
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "t 1.0"), lines[0])
	assert.Contains(t, lines[0], "/NodeList/0/DeviceList/0/Phy/State/Tx DATA")
	assert.True(t, strings.HasPrefix(lines[1], "r "), lines[1])
	assert.Contains(t, lines[1], "/NodeList/1/DeviceList/0/Phy/State/RxOk")
	assert.Contains(t, lines[2], "/NodeList/1/DeviceList/0/Phy/State/Tx CTL_ACK")

	sum := Summarize(tr.Records())
	assert.Equal(t, 4, sum.TotalEvents)
	assert.Equal(t, 2, sum.TxFrames)
	assert.Equal(t, 2, sum.RxFrames)
	assert.Equal(t, NodeSummary{Tx: 1, Rx: 1}, sum.Nodes[0])
	assert.Equal(t, 564+wifi.AckSize, sum.TxBytes)
	assert.Len(t, tr.Files(), 3)
}

func TestTracer_DisabledOutputs(t *testing.T) {
	_, devs := twoDevices(t)
	tr, err := NewTracer(Config{})
	require.NoError(t, err)
	require.NoError(t, tr.Attach(devs[0]))
	assert.Empty(t, tr.Files())
	assert.Empty(t, tr.Records())
	assert.NoError(t, tr.Close())
}

func TestTracer_BadDirectory(t *testing.T) {
	_, err := NewTracer(Config{Dir: filepath.Join(t.TempDir(), "missing"), AsciiFile: "x.tr"})
	assert.Error(t, err)

	_, devs := twoDevices(t)
	tr, err := NewTracer(Config{Dir: filepath.Join(t.TempDir(), "missing"), PcapPrefix: "p"})
	require.NoError(t, err)
	assert.Error(t, tr.Attach(devs[0]))
}

func TestFrameRecord_Line(t *testing.T) {
	r := FrameRecord{Kind: KindDrop, Time: 1_000_890_000, NodeID: 1, Summary: "DATA", Reason: metrics.ReasonCollision}
	assert.Equal(t, "d 1.00089 /NodeList/1/DeviceList/0/Phy/PhyRxDrop DATA reason=collision", r.Line())
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalEvents)
	assert.NotNil(t, s.DropsByReason)
	assert.Empty(t, s.Nodes)
}
