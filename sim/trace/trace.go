package trace

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/vanet-sim/dsrc-sim/sim/wifi"
)

// Config selects the trace outputs. Empty file names disable the output.
type Config struct {
	Dir        string `yaml:"dir"`
	PcapPrefix string `yaml:"pcap_prefix"`
	AsciiFile  string `yaml:"ascii_file"`
	// Record keeps every event in memory for Summarize.
	Record bool `yaml:"record"`
}

// Tracer attaches to devices and fans their PHY events out to the
// configured writers.
type Tracer struct {
	cfg     Config
	pcaps   []*PcapWriter
	ascii   *AsciiWriter
	records []FrameRecord
}

// NewTracer opens the shared ascii trace, if configured.
func NewTracer(cfg Config) (*Tracer, error) {
	t := &Tracer{cfg: cfg}
	if cfg.AsciiFile != "" {
		a, err := NewAsciiWriter(filepath.Join(cfg.Dir, cfg.AsciiFile))
		if err != nil {
			return nil, err
		}
		t.ascii = a
	}
	return t, nil
}

// Attach starts tracing dev.
func (t *Tracer) Attach(dev *wifi.NetDevice) error {
	var pcap *PcapWriter
	if t.cfg.PcapPrefix != "" {
		path := filepath.Join(t.cfg.Dir, PcapFileName(t.cfg.PcapPrefix, dev.NodeID(), dev.Index()))
		w, err := NewPcapWriter(path)
		if err != nil {
			return fmt.Errorf("error tracing device %d/%d: %w", dev.NodeID(), dev.Index(), err)
		}
		pcap = w
		t.pcaps = append(t.pcaps, w)
	}
	phy := dev.Phy()
	phy.TraceTx(func(e wifi.TxEvent) {
		if pcap != nil {
			pcap.WriteFrame(e.Time, e.Frame)
		}
		t.emit(FrameRecord{Kind: KindTx, Time: e.Time, NodeID: e.NodeID, DeviceID: e.DeviceID, Size: e.Frame.Size(), Summary: e.Frame.String()})
	})
	phy.TraceRx(func(e wifi.RxEvent) {
		if pcap != nil {
			pcap.WriteFrame(e.Time, e.Frame)
		}
		t.emit(FrameRecord{Kind: KindRx, Time: e.Time, NodeID: e.NodeID, DeviceID: e.DeviceID, Size: e.Frame.Size(), Summary: e.Frame.String()})
	})
	phy.TraceDrop(func(e wifi.DropEvent) {
		t.emit(FrameRecord{Kind: KindDrop, Time: e.Time, NodeID: e.NodeID, DeviceID: e.DeviceID, Size: e.Frame.Size(), Summary: e.Frame.String(), Reason: e.Reason})
	})
	return nil
}

func (t *Tracer) emit(r FrameRecord) {
	if t.ascii != nil {
		t.ascii.Write(r)
	}
	if t.cfg.Record {
		t.records = append(t.records, r)
	}
}

// Records returns the recorded events; empty unless Config.Record is set.
func (t *Tracer) Records() []FrameRecord { return t.records }

// Files lists every output file, pcaps first.
func (t *Tracer) Files() []string {
	var files []string
	for _, p := range t.pcaps {
		files = append(files, p.Path())
	}
	if t.ascii != nil {
		files = append(files, t.ascii.Path())
	}
	return files
}

// Close closes every writer and reports all failures together.
func (t *Tracer) Close() error {
	var result *multierror.Error
	for _, p := range t.pcaps {
		if err := p.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if t.ascii != nil {
		if err := t.ascii.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
