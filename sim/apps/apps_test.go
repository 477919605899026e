package apps

import (
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/inet"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/mobility"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/propagation"
	"github.com/vanet-sim/dsrc-sim/sim/wifi"
)

type network struct {
	sim     *sim.Simulator
	stacks  []*inet.Stack
	metrics *metrics.Registry
}

func newNetwork(t *testing.T, distance float64) *network {
	t.Helper()
	s := sim.NewSimulator(7)
	reg := metrics.New()
	ch := wifi.NewChannel(s, propagation.NewFriis(wifi.Standard80211p.Frequency), propagation.NewConstantSpeed())
	h := wifi.NewHelper(wifi.Standard80211p, reg)
	var addrs inet.AddressHelper
	require.NoError(t, addrs.SetBase("10.1.1.0", "255.255.255.0"))
	uids := &packet.UIDGenerator{}
	n := &network{sim: s, metrics: reg}
	for i, x := range []float64{0, distance} {
		dev := h.Install(s, ch, i, mobility.NewConstantPosition(mobility.Vector{X: x}))
		st := inet.NewStack(s, i, uids, reg)
		a, err := addrs.NewAddress()
		require.NoError(t, err)
		st.AddInterface(dev, a)
		n.stacks = append(n.stacks, st)
	}
	return n
}

func TestEcho_EveryPacketComesBack(t *testing.T) {
	// GIVEN an echo server on node 1 and a client on node 0 sending 3 packets
	n := newNetwork(t, 50)
	server := NewUdpEchoServer(n.sim, n.stacks[1], 5000, n.metrics)
	client, err := NewUdpEchoClient(n.sim, n.stacks[0], EchoClientConfig{
		Remote:     net.IPv4(10, 1, 1, 2),
		Port:       5000,
		MaxPackets: 3,
		Interval:   sim.Second,
		PacketSize: 500,
	}, n.metrics)
	require.NoError(t, err)
	Install(n.sim, server, sim.Second, 10*sim.Second, nil)
	Install(n.sim, client, sim.Second, 10*sim.Second, nil)

	// WHEN the simulation runs to completion
	n.sim.Run()

	// THEN all three echoes return
	assert.Equal(t, 3, client.Sent())
	assert.Equal(t, 3, server.Received())
	assert.Equal(t, 3, client.Received())
	assert.Equal(t, 3.0, testutil.ToFloat64(n.metrics.AppSentCounter(0, EchoClientName)))
	assert.Equal(t, 3.0, testutil.ToFloat64(n.metrics.AppReceivedCounter(1, EchoServerName)))
	assert.Equal(t, 3.0, testutil.ToFloat64(n.metrics.AppReceivedCounter(0, EchoClientName)))
}

func TestEchoClient_StopsAtStopTime(t *testing.T) {
	n := newNetwork(t, 50)
	client, err := NewUdpEchoClient(n.sim, n.stacks[0], EchoClientConfig{
		Remote:     net.IPv4(10, 1, 1, 2),
		Port:       5000,
		Interval:   sim.Second,
		PacketSize: 100,
	}, n.metrics)
	require.NoError(t, err)

	// GIVEN no packet limit and a stop at 4.5s
	Install(n.sim, client, sim.Second, sim.Seconds(4.5), nil)
	n.sim.Run()

	// THEN sends happen at 1, 2, 3 and 4s only, and nobody echoes
	assert.Equal(t, 4, client.Sent())
	assert.Equal(t, 0, client.Received())
	assert.Equal(t, 4.0, testutil.ToFloat64(n.metrics.IPDropCounter(1, metrics.ReasonNoSocket)))
}

func TestNewUdpEchoClient_RejectsBadConfig(t *testing.T) {
	s := sim.NewSimulator(1)
	_, err := NewUdpEchoClient(s, nil, EchoClientConfig{Interval: sim.Second}, nil)
	assert.Error(t, err, "missing remote")
	_, err = NewUdpEchoClient(s, nil, EchoClientConfig{Remote: net.IPv4(10, 1, 1, 2)}, nil)
	assert.Error(t, err, "zero interval")
	_, err = NewUdpEchoClient(s, nil, EchoClientConfig{Remote: net.IPv4(10, 1, 1, 2), Interval: 1, PacketSize: -1}, nil)
	assert.Error(t, err, "negative size")
}

func TestInstall_ReportsStartFailure(t *testing.T) {
	// GIVEN two servers on the same port
	n := newNetwork(t, 50)
	first := NewUdpEchoServer(n.sim, n.stacks[1], 5000, n.metrics)
	second := NewUdpEchoServer(n.sim, n.stacks[1], 5000, n.metrics)
	var failed []string
	onError := func(a Application, err error) { failed = append(failed, a.Name()) }

	Install(n.sim, first, sim.Second, 2*sim.Second, onError)
	Install(n.sim, second, sim.Second, 2*sim.Second, onError)
	n.sim.Run()

	// THEN the second one fails to bind
	assert.Equal(t, []string{EchoServerName}, failed)
}
