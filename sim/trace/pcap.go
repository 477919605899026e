package trace

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/vanet-sim/dsrc-sim/sim/wifi"
)

// SnapLen is the capture length written in pcap headers.
const SnapLen = 65535

// PcapWriter captures the data frames one device sends and receives.
type PcapWriter struct {
	path    string
	file    *os.File
	w       *pcapgo.Writer
	packets int
	err     error
}

// PcapFileName is <prefix>-<node>-<device>.pcap.
func PcapFileName(prefix string, nodeID, deviceID int) string {
	return fmt.Sprintf("%s-%d-%d.pcap", prefix, nodeID, deviceID)
}

// NewPcapWriter creates path and writes the 802.11 file header.
func NewPcapWriter(path string) (*PcapWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating pcap file: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(SnapLen, layers.LinkTypeIEEE802_11); err != nil {
		f.Close()
		return nil, fmt.Errorf("error writing pcap header to %s: %w", path, err)
	}
	return &PcapWriter{path: path, file: f, w: w}, nil
}

// Path returns the file being written.
func (p *PcapWriter) Path() string { return p.path }

// Packets is the number of frames written.
func (p *PcapWriter) Packets() int { return p.packets }

// WriteFrame appends f stamped with simulation time now. Control frames
// carry no packet and are skipped. The first write error sticks and is
// returned by Close.
func (p *PcapWriter) WriteFrame(now int64, f *wifi.Frame) {
	if p.err != nil || f.Type != wifi.FrameData {
		return
	}
	b, err := f.Serialize()
	if err != nil {
		p.err = err
		return
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Unix(0, now).UTC(),
		CaptureLength: len(b),
		Length:        len(b),
	}
	if err := p.w.WritePacket(ci, b); err != nil {
		p.err = fmt.Errorf("error writing to %s: %w", p.path, err)
		return
	}
	p.packets++
}

// Close flushes and closes the file.
func (p *PcapWriter) Close() error {
	cerr := p.file.Close()
	if p.err != nil {
		return p.err
	}
	return cerr
}
