// Package report turns flow statistics into the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/flowmon"
)

// WindowMode chooses the observation window throughput is computed over.
type WindowMode string

const (
	// WindowActive uses the application active period, appStop - appStart,
	// cut at the simulation stop time.
	WindowActive WindowMode = "active"
	// WindowFlow uses each flow's own lifetime, last rx - first tx.
	WindowFlow WindowMode = "flow"
)

var validWindowModes = map[WindowMode]bool{
	WindowActive: true,
	WindowFlow:   true,
	"":           true, // empty defaults to active
}

// IsValidWindowMode reports whether mode is accepted.
func IsValidWindowMode(mode string) bool {
	return validWindowModes[WindowMode(mode)]
}

// ObservationWindow returns the window, in ticks, used for the throughput
// of a flow. In active mode the application period is cut at simStop. It is
// zero when the window is undefined, e.g. a flow that never received
// anything in flow mode.
func ObservationWindow(mode WindowMode, appStart, appStop, simStop int64, st flowmon.FlowStats) int64 {
	switch mode {
	case WindowFlow:
		if st.RxPackets == 0 {
			return 0
		}
		return max(st.TimeLastRxPacket-st.TimeFirstTxPacket, 0)
	default:
		return max(min(appStop, simStop)-appStart, 0)
	}
}

// FlowSummary is the per-flow result. Pointer fields are nil when the
// value is undefined for the flow.
type FlowSummary struct {
	FlowID      uint32 `yaml:"flow_id"`
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	TxPackets   uint32 `yaml:"tx_packets"`
	RxPackets   uint32 `yaml:"rx_packets"`
	LostPackets uint32 `yaml:"lost_packets"`
	TxBytes     uint64 `yaml:"tx_bytes"`
	RxBytes     uint64 `yaml:"rx_bytes"`

	// PDR in percent; nil when nothing was sent.
	PDR *float64 `yaml:"pdr_percent,omitempty"`
	// AverageDelay in seconds; nil when nothing was received.
	AverageDelay *float64 `yaml:"average_delay_s,omitempty"`
	// Throughput in kbps; nil when nothing was received.
	Throughput *float64 `yaml:"throughput_kbps,omitempty"`
	WindowSec  float64  `yaml:"window_s"`

	MeanJitter  *float64 `yaml:"mean_jitter_s,omitempty"`
	DelayStdDev *float64 `yaml:"delay_stddev_s,omitempty"`
	DelayP95    *float64 `yaml:"delay_p95_s,omitempty"`

	Dropped map[string]uint32 `yaml:"dropped,omitempty"`
}

// Summarize computes the summaries of stats. window gives the observation
// window of each flow.
func Summarize(stats []flowmon.FlowStats, window func(flowmon.FlowStats) int64) []FlowSummary {
	out := make([]FlowSummary, 0, len(stats))
	for _, st := range stats {
		s := FlowSummary{
			FlowID:      uint32(st.ID),
			Source:      fmt.Sprintf("%v:%d", st.Tuple.SrcIP(), st.Tuple.SrcPort),
			Destination: fmt.Sprintf("%v:%d", st.Tuple.DstIP(), st.Tuple.DstPort),
			TxPackets:   st.TxPackets,
			RxPackets:   st.RxPackets,
			LostPackets: st.LostPackets,
			TxBytes:     st.TxBytes,
			RxBytes:     st.RxBytes,
		}
		if len(st.PacketsDropped) > 0 {
			s.Dropped = st.PacketsDropped
		}
		if st.TxPackets > 0 {
			s.PDR = ptr(float64(st.RxPackets) * 100.0 / float64(st.TxPackets))
		}
		w := window(st)
		s.WindowSec = sim.ToSeconds(w)
		if st.RxPackets > 0 {
			s.AverageDelay = ptr(sim.ToSeconds(st.DelaySum) / float64(st.RxPackets))
			if w > 0 {
				s.Throughput = ptr(float64(st.RxBytes) * 8.0 / s.WindowSec / 1000)
			}
			if st.RxPackets > 1 {
				s.MeanJitter = ptr(sim.ToSeconds(st.JitterSum) / float64(st.RxPackets-1))
			}
			delays := make([]float64, len(st.Delays))
			for i, d := range st.Delays {
				delays[i] = sim.ToSeconds(d)
			}
			if len(delays) > 1 {
				s.DelayStdDev = ptr(stat.StdDev(delays, nil))
			}
			if len(delays) > 0 {
				sort.Float64s(delays)
				s.DelayP95 = ptr(stat.Quantile(0.95, stat.Empirical, delays, nil))
			}
		}
		out = append(out, s)
	}
	return out
}

func ptr(v float64) *float64 { return &v }

// num prints like a default iostream: six significant digits, no trailing
// zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Options tunes the text report.
type Options struct {
	// Detailed adds loss, jitter and delay spread lines.
	Detailed bool
}

// Print writes the text report.
func Print(w io.Writer, flows []FlowSummary, opts Options) error {
	ew := &errWriter{w: w}
	ew.printf("\n=== Simulation Results ===\n")
	for _, f := range flows {
		ew.printf("Flow ID: %d\n", f.FlowID)
		if opts.Detailed {
			ew.printf("  %s -> %s\n", f.Source, f.Destination)
		}
		ew.printf("  Tx Packets: %d\n", f.TxPackets)
		ew.printf("  Rx Packets: %d\n", f.RxPackets)
		if f.PDR != nil {
			ew.printf("  Packet Delivery Ratio: %s%%\n", num(*f.PDR))
		}
		if f.RxPackets == 0 {
			ew.printf("  WARNING: No packets received!\n")
			continue
		}
		ew.printf("  Average Delay: %ss\n", num(*f.AverageDelay))
		if f.Throughput != nil {
			ew.printf("  Throughput: %s kbps\n", num(*f.Throughput))
		}
		if opts.Detailed {
			ew.printf("  Lost Packets: %d\n", f.LostPackets)
			if f.MeanJitter != nil {
				ew.printf("  Mean Jitter: %ss\n", num(*f.MeanJitter))
			}
			if f.DelayStdDev != nil {
				ew.printf("  Delay StdDev: %ss\n", num(*f.DelayStdDev))
			}
			ew.printf("  Delay P95: %ss\n", num(*f.DelayP95))
		}
	}
	return ew.err
}

// Document is the structured report.
type Document struct {
	Run        string        `yaml:"run"`
	Seed       int64         `yaml:"seed"`
	WindowMode WindowMode    `yaml:"window_mode"`
	Flows      []FlowSummary `yaml:"flows"`
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	return enc.Close()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
