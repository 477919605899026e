package inet

import (
	"fmt"
	"net"

	"github.com/vanet-sim/dsrc-sim/sim/packet"
)

// Datagram is a received UDP payload with its origin.
type Datagram struct {
	Payload  []byte
	From     net.IP
	FromPort uint16
	Packet   *packet.Packet
}

// UDPSocket is a bound UDP endpoint on a Stack.
type UDPSocket struct {
	stack  *Stack
	port   uint16
	recv   func(Datagram)
	closed bool
}

// Bind opens a socket on port, or on the next free ephemeral port when
// port is 0.
func (s *Stack) Bind(port uint16) (*UDPSocket, error) {
	if port == 0 {
		p, err := s.allocateEphemeral()
		if err != nil {
			return nil, err
		}
		port = p
	} else if _, used := s.sockets[port]; used {
		return nil, fmt.Errorf("node %d: port %d already bound", s.nodeID, port)
	}
	sock := &UDPSocket{stack: s, port: port}
	s.sockets[port] = sock
	return sock, nil
}

func (s *Stack) allocateEphemeral() (uint16, error) {
	for i := 0; i <= LastEphemeralPort-FirstEphemeralPort; i++ {
		p := s.nextEphemeral
		if s.nextEphemeral == LastEphemeralPort {
			s.nextEphemeral = FirstEphemeralPort
		} else {
			s.nextEphemeral++
		}
		if _, used := s.sockets[p]; !used {
			return p, nil
		}
	}
	return 0, fmt.Errorf("node %d: ephemeral ports exhausted", s.nodeID)
}

// LocalPort returns the bound port.
func (u *UDPSocket) LocalPort() uint16 { return u.port }

// SetRecvCallback installs the datagram handler.
func (u *UDPSocket) SetRecvCallback(fn func(Datagram)) { u.recv = fn }

// SendTo sends payload to dst:port.
func (u *UDPSocket) SendTo(payload []byte, dst net.IP, port uint16) error {
	if u.closed {
		return fmt.Errorf("send on closed socket %d", u.port)
	}
	return u.stack.sendUDP(u.port, dst, port, payload)
}

// Close unbinds the socket. Datagrams arriving afterwards are dropped.
func (u *UDPSocket) Close() {
	if u.closed {
		return
	}
	u.closed = true
	delete(u.stack.sockets, u.port)
}

func (u *UDPSocket) deliver(p *packet.Packet) {
	if u.recv == nil {
		return
	}
	u.recv(Datagram{
		Payload:  p.Payload,
		From:     p.IPv4.SrcIP,
		FromPort: uint16(p.UDP.SrcPort),
		Packet:   p,
	})
}
