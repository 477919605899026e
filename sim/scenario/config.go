// Package scenario assembles and runs the two-vehicle DSRC experiment:
// nodes, 802.11p radios, mobility, addressing, echo traffic, tracing and
// flow monitoring.
package scenario

import (
	"bytes"
	"fmt"
	"net"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vanet-sim/dsrc-sim/sim/inet"
	"github.com/vanet-sim/dsrc-sim/sim/mobility"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/report"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
	"github.com/vanet-sim/dsrc-sim/sim/trace"
	"github.com/vanet-sim/dsrc-sim/sim/wifi"
)

// Propagation loss model names.
const (
	LossTwoRayGround = "two-ray-ground"
	LossFriis        = "friis"
	LossLogDistance  = "log-distance"
)

var validLossModels = map[string]bool{
	LossTwoRayGround: true,
	LossFriis:        true,
	LossLogDistance:  true,
}

// PropagationConfig selects the channel loss model.
type PropagationConfig struct {
	Model        string  `yaml:"model"`
	HeightAboveZ float64 `yaml:"height_above_z"` // meters, two-ray ground only
	// MaxRange chains a hard range cut-off after the model when positive.
	MaxRange float64 `yaml:"max_range"`
}

// RadioConfig holds the PHY attributes the scenario sets.
type RadioConfig struct {
	TxPower       float64 `yaml:"tx_power"`       // dBm
	RxGain        float64 `yaml:"rx_gain"`        // dB
	NoiseFigure   float64 `yaml:"noise_figure"`   // dB
	RxSensitivity float64 `yaml:"rx_sensitivity"` // dBm
}

// AppConfig describes the echo traffic.
type AppConfig struct {
	Port       uint16  `yaml:"port"`
	PacketSize int     `yaml:"packet_size"` // bytes
	Interval   float64 `yaml:"interval"`    // seconds
	MaxPackets int     `yaml:"max_packets"`
	Start      float64 `yaml:"start"` // seconds
	Stop       float64 `yaml:"stop"`  // seconds
}

// ReportConfig controls the end-of-run summary.
type ReportConfig struct {
	Window   string `yaml:"window"` // active | flow
	Detailed bool   `yaml:"detailed"`
}

// Config is a complete scenario description. Times are in seconds,
// distances in meters.
type Config struct {
	Name    string `yaml:"name"` // run label; generated when empty
	Seed    int64  `yaml:"seed"`
	Nodes   int    `yaml:"nodes"`
	Network string `yaml:"network"`
	Mask    string `yaml:"mask"`

	Distance   float64           `yaml:"distance"`
	Height     float64           `yaml:"height"` // node z coordinate
	Velocities []mobility.Vector `yaml:"velocities"`

	Radio       RadioConfig       `yaml:"radio"`
	Propagation PropagationConfig `yaml:"propagation"`
	App         AppConfig         `yaml:"app"`
	StopTime    float64           `yaml:"stop_time"`

	// MaxPerHopDelay is how long a packet may be outstanding before the
	// flow monitor counts it lost.
	MaxPerHopDelay float64 `yaml:"max_per_hop_delay"`

	Trace     trace.Config      `yaml:"trace"`
	LogLevels map[string]string `yaml:"log_levels"`
	Report    ReportConfig      `yaml:"report"`
}

// Default returns the stock scenario: two vehicles 50m apart driving
// towards each other at 20 m/s, echoing 500 byte packets at 10 Hz.
func Default() Config {
	return Config{
		Seed:       1,
		Nodes:      2,
		Network:    "10.1.1.0",
		Mask:       "255.255.255.0",
		Distance:   50,
		Height:     1.5,
		Velocities: []mobility.Vector{{X: 20}, {X: -20}},
		Radio: RadioConfig{
			TxPower:       23,
			RxGain:        10,
			NoiseFigure:   2,
			RxSensitivity: -101,
		},
		Propagation: PropagationConfig{Model: LossTwoRayGround, HeightAboveZ: 1.5},
		App: AppConfig{
			Port:       5000,
			PacketSize: 500,
			Interval:   0.1,
			MaxPackets: 90,
			Start:      1,
			Stop:       10,
		},
		StopTime:       10,
		MaxPerHopDelay: 10,
		Trace: trace.Config{
			PcapPrefix: "dsrc-sim",
			AsciiFile:  "dsrc-trace.tr",
		},
		LogLevels: map[string]string{
			simlog.Scenario:      "info",
			simlog.EchoClient:    "info",
			simlog.EchoServer:    "info",
			simlog.WifiPhy:       "warn",
			simlog.Ipv4Interface: "info",
		},
		Report: ReportConfig{Window: string(report.WindowActive)},
	}
}

// Load reads a YAML scenario on top of the defaults. Unknown fields are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading scenario file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing scenario file %s: %w", path, err)
	}
	return cfg, nil
}

// YAML renders cfg as a scenario file.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("error encoding scenario: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if c.Nodes < 2 {
		add("nodes must be at least 2, got %d", c.Nodes)
	}
	if len(c.Velocities) > c.Nodes {
		add("%d velocities given for %d nodes", len(c.Velocities), c.Nodes)
	}
	if net.ParseIP(c.Network).To4() == nil {
		add("network %q is not an IPv4 address", c.Network)
	}
	if m := net.ParseIP(c.Mask).To4(); m == nil {
		add("mask %q is not an IPv4 mask", c.Mask)
	} else if ones, bits := net.IPMask(m).Size(); ones == 0 && bits == 0 {
		add("mask %q is not contiguous", c.Mask)
	} else if hosts := inet.HostCount(net.IPMask(m)); c.Nodes > hosts {
		add("mask %q has room for %d hosts, need %d nodes", c.Mask, hosts, c.Nodes)
	}
	if c.Distance < 0 {
		add("distance must be non-negative, got %g", c.Distance)
	}
	if !validLossModels[c.Propagation.Model] {
		add("unknown propagation model %q", c.Propagation.Model)
	}
	if c.Propagation.MaxRange < 0 {
		add("max_range must be non-negative, got %g", c.Propagation.MaxRange)
	}
	if c.App.Port == 0 {
		add("app port must be set")
	}
	if maxPayload := wifi.DefaultMTU - packet.IPv4HeaderSize - packet.UDPHeaderSize; c.App.PacketSize < 0 || c.App.PacketSize > maxPayload {
		add("packet_size must be in [0, %d], got %d", maxPayload, c.App.PacketSize)
	}
	if c.App.Interval <= 0 {
		add("interval must be positive, got %g", c.App.Interval)
	}
	if c.App.MaxPackets < 0 {
		add("max_packets must be non-negative, got %d", c.App.MaxPackets)
	}
	if c.App.Start < 0 {
		add("app start must be non-negative, got %g", c.App.Start)
	}
	if c.App.Stop <= c.App.Start {
		add("app stop (%g) must be after app start (%g)", c.App.Stop, c.App.Start)
	}
	if c.StopTime <= 0 {
		add("stop_time must be positive, got %g", c.StopTime)
	}
	if c.MaxPerHopDelay <= 0 {
		add("max_per_hop_delay must be positive, got %g", c.MaxPerHopDelay)
	}
	if !report.IsValidWindowMode(c.Report.Window) {
		add("unknown report window %q (want active or flow)", c.Report.Window)
	}
	for name, lvl := range c.LogLevels {
		if _, err := logrus.ParseLevel(lvl); err != nil {
			add("log level for %s: %v", name, err)
		}
	}
	return result.ErrorOrNil()
}
