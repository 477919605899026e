package apps

import (
	"fmt"
	"net"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/inet"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
)

const (
	EchoServerName = "echo-server"
	EchoClientName = "echo-client"
)

// UdpEchoServer returns every datagram to its sender.
type UdpEchoServer struct {
	sim     *sim.Simulator
	stack   *inet.Stack
	port    uint16
	metrics *metrics.Registry
	socket  *inet.UDPSocket

	received int
}

// NewUdpEchoServer creates a server listening on port of stack.
func NewUdpEchoServer(s *sim.Simulator, stack *inet.Stack, port uint16, reg *metrics.Registry) *UdpEchoServer {
	return &UdpEchoServer{sim: s, stack: stack, port: port, metrics: reg}
}

func (e *UdpEchoServer) Name() string { return EchoServerName }

// Received counts the datagrams echoed so far.
func (e *UdpEchoServer) Received() int { return e.received }

func (e *UdpEchoServer) Start() error {
	sock, err := e.stack.Bind(e.port)
	if err != nil {
		return fmt.Errorf("echo server on node %d: %w", e.stack.NodeID(), err)
	}
	e.socket = sock
	sock.SetRecvCallback(e.handleRead)
	return nil
}

func (e *UdpEchoServer) Stop() {
	if e.socket != nil {
		e.socket.Close()
		e.socket = nil
	}
}

func (e *UdpEchoServer) handleRead(d inet.Datagram) {
	now := e.sim.Now()
	log := simlog.At(simlog.EchoServer, now)
	e.received++
	e.metrics.AppReceived(e.stack.NodeID(), EchoServerName)
	log.Infof("At time %s server received %d bytes from %v port %d", sim.FormatTime(now), len(d.Payload), d.From, d.FromPort)

	if err := e.socket.SendTo(d.Payload, d.From, d.FromPort); err != nil {
		log.Warnf("echo to %v port %d failed: %v", d.From, d.FromPort, err)
		return
	}
	e.metrics.AppSent(e.stack.NodeID(), EchoServerName)
	log.Infof("At time %s server sent %d bytes to %v port %d", sim.FormatTime(now), len(d.Payload), d.From, d.FromPort)
}

// EchoClientConfig parameterizes a UdpEchoClient.
type EchoClientConfig struct {
	Remote     net.IP
	Port       uint16
	MaxPackets int   // 0 sends until stopped
	Interval   int64 // ticks between sends
	PacketSize int   // payload bytes
}

// UdpEchoClient sends fixed-size datagrams at a fixed interval and counts
// the echoes that come back.
type UdpEchoClient struct {
	sim     *sim.Simulator
	stack   *inet.Stack
	cfg     EchoClientConfig
	metrics *metrics.Registry
	socket  *inet.UDPSocket
	next    *sim.ScheduledEvent

	sent     int
	received int
}

// NewUdpEchoClient creates a client on stack.
func NewUdpEchoClient(s *sim.Simulator, stack *inet.Stack, cfg EchoClientConfig, reg *metrics.Registry) (*UdpEchoClient, error) {
	if cfg.Remote == nil {
		return nil, fmt.Errorf("echo client: remote address is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("echo client: interval must be positive, got %d", cfg.Interval)
	}
	if cfg.PacketSize < 0 {
		return nil, fmt.Errorf("echo client: negative packet size %d", cfg.PacketSize)
	}
	return &UdpEchoClient{sim: s, stack: stack, cfg: cfg, metrics: reg}, nil
}

func (c *UdpEchoClient) Name() string { return EchoClientName }

// Sent is the number of send attempts, including ones the stack refused.
func (c *UdpEchoClient) Sent() int { return c.sent }

// Received is the number of echoes received.
func (c *UdpEchoClient) Received() int { return c.received }

func (c *UdpEchoClient) Start() error {
	sock, err := c.stack.Bind(0)
	if err != nil {
		return fmt.Errorf("echo client on node %d: %w", c.stack.NodeID(), err)
	}
	c.socket = sock
	sock.SetRecvCallback(c.handleRead)
	c.next = c.sim.Schedule(0, c.send)
	return nil
}

func (c *UdpEchoClient) Stop() {
	c.next.Cancel()
	c.next = nil
	if c.socket != nil {
		c.socket.Close()
		c.socket = nil
	}
}

func (c *UdpEchoClient) send() {
	now := c.sim.Now()
	log := simlog.At(simlog.EchoClient, now)
	payload := make([]byte, c.cfg.PacketSize)
	c.sent++
	if err := c.socket.SendTo(payload, c.cfg.Remote, c.cfg.Port); err != nil {
		log.Warnf("send to %v port %d failed: %v", c.cfg.Remote, c.cfg.Port, err)
	} else {
		c.metrics.AppSent(c.stack.NodeID(), EchoClientName)
		log.Infof("At time %s client sent %d bytes to %v port %d", sim.FormatTime(now), len(payload), c.cfg.Remote, c.cfg.Port)
	}
	if c.cfg.MaxPackets == 0 || c.sent < c.cfg.MaxPackets {
		c.next = c.sim.Schedule(c.cfg.Interval, c.send)
	}
}

func (c *UdpEchoClient) handleRead(d inet.Datagram) {
	now := c.sim.Now()
	c.received++
	c.metrics.AppReceived(c.stack.NodeID(), EchoClientName)
	simlog.At(simlog.EchoClient, now).Infof("At time %s client received %d bytes from %v port %d",
		sim.FormatTime(now), len(d.Payload), d.From, d.FromPort)
}
