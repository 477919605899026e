package scenario

import (
	"fmt"

	petname "github.com/dustinkirkland/golang-petname"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/apps"
	"github.com/vanet-sim/dsrc-sim/sim/flowmon"
	"github.com/vanet-sim/dsrc-sim/sim/inet"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/mobility"
	"github.com/vanet-sim/dsrc-sim/sim/packet"
	"github.com/vanet-sim/dsrc-sim/sim/propagation"
	"github.com/vanet-sim/dsrc-sim/sim/report"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
	"github.com/vanet-sim/dsrc-sim/sim/trace"
	"github.com/vanet-sim/dsrc-sim/sim/wifi"
)

const (
	clientNode = 0
	serverNode = 1
)

// Node is one vehicle.
type Node struct {
	ID       int
	Mobility *mobility.ConstantVelocity
	Device   *wifi.NetDevice
	Stack    *inet.Stack
}

// Scenario is a built, runnable experiment.
type Scenario struct {
	Config  Config
	Name    string
	Sim     *sim.Simulator
	Nodes   []*Node
	Client  *apps.UdpEchoClient
	Server  *apps.UdpEchoServer
	Monitor *flowmon.Monitor
	Tracer  *trace.Tracer
	Metrics *metrics.Registry

	startErrs []error
}

// Result is what a run produces.
type Result struct {
	Name           string
	Seed           int64
	WindowMode     report.WindowMode
	Flows          []flowmon.FlowStats
	Summaries      []report.FlowSummary
	Positions      []mobility.Vector // at the end of the run
	ClientSent     int
	ClientReceived int
	ServerReceived int
	EventsExecuted uint64
	EndTime        int64
	TraceFiles     []string
	Trace          trace.Summary
	Metrics        *metrics.Registry
}

// Report renders the structured report document.
func (r *Result) Report() report.Document {
	return report.Document{Run: r.Name, Seed: r.Seed, WindowMode: r.WindowMode, Flows: r.Summaries}
}

func lossModel(c PropagationConfig, freq float64) propagation.LossModel {
	var m propagation.LossModel
	switch c.Model {
	case LossFriis:
		m = propagation.NewFriis(freq)
	case LossLogDistance:
		m = propagation.NewLogDistance()
	default:
		m = propagation.NewTwoRayGround(freq, c.HeightAboveZ)
	}
	if c.MaxRange > 0 {
		return propagation.Chain{m, &propagation.Range{MaxRange: c.MaxRange}}
	}
	return m
}

// Build validates cfg and wires the whole experiment without running it.
func Build(cfg Config) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := simlog.SetLevels(cfg.LogLevels); err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = petname.Generate(2, "-")
	}
	s := sim.NewSimulator(cfg.Seed)
	reg := metrics.New()
	log := simlog.At(simlog.Scenario, s.Now())
	sc := &Scenario{Config: cfg, Name: name, Sim: s, Metrics: reg}
	log.Infof("Run %s, seed %d", name, cfg.Seed)

	// nodes and mobility
	positions := mobility.NewListPositionAllocator()
	for i := 0; i < cfg.Nodes; i++ {
		positions.Add(mobility.Vector{X: float64(i) * cfg.Distance, Z: cfg.Height})
	}
	for i := 0; i < cfg.Nodes; i++ {
		p, err := positions.Next()
		if err != nil {
			return nil, err
		}
		mob := mobility.NewConstantVelocity(p)
		if i < len(cfg.Velocities) {
			mob.SetVelocity(s.Now(), cfg.Velocities[i])
		}
		sc.Nodes = append(sc.Nodes, &Node{ID: i, Mobility: mob})
	}
	log.Infof("Created %d vehicle nodes", cfg.Nodes)

	// radios
	std := wifi.Standard80211p
	channel := wifi.NewChannel(s, lossModel(cfg.Propagation, std.Frequency), propagation.NewConstantSpeed())
	helper := wifi.NewHelper(std, reg)
	helper.Phy.TxPowerStart = cfg.Radio.TxPower
	helper.Phy.TxPowerEnd = cfg.Radio.TxPower
	helper.Phy.RxGain = cfg.Radio.RxGain
	helper.Phy.RxNoiseFigure = cfg.Radio.NoiseFigure
	helper.Phy.RxSensitivity = cfg.Radio.RxSensitivity
	for _, n := range sc.Nodes {
		n.Device = helper.Install(s, channel, n.ID, n.Mobility)
	}
	log.Infof("Configured %s PHY/MAC with:\n  - Frequency: %g GHz\n  - TxPower: %g dBm\n  - DataRate: %g Mbps",
		std.Name, std.Frequency/1e9, cfg.Radio.TxPower, std.DataRate/1e6)

	speed := 0.0
	if len(cfg.Velocities) > 0 {
		speed = mobility.Distance(mobility.Vector{}, cfg.Velocities[0])
	}
	log.Infof("Configured mobility:\n  - Initial distance: %gm\n  - Speed: ±%g m/s (%g km/h)\n  - Antenna height: %gm",
		cfg.Distance, speed, speed*3.6, cfg.Height)

	// internet stack
	var addrs inet.AddressHelper
	if err := addrs.SetBase(cfg.Network, cfg.Mask); err != nil {
		return nil, err
	}
	uids := &packet.UIDGenerator{}
	log.Infof("IP Addresses assigned:")
	for _, n := range sc.Nodes {
		n.Stack = inet.NewStack(s, n.ID, uids, reg)
		iface, err := addrs.Assign(n.Stack, n.Device)
		if err != nil {
			return nil, err
		}
		log.Infof("  Node %d: %v", n.ID, iface.Address.IP)
	}

	// applications
	start, stop := sim.Seconds(cfg.App.Start), sim.Seconds(cfg.App.Stop)
	onError := func(a apps.Application, err error) {
		sc.startErrs = append(sc.startErrs, fmt.Errorf("%s: %w", a.Name(), err))
	}
	sc.Server = apps.NewUdpEchoServer(s, sc.Nodes[serverNode].Stack, cfg.App.Port, reg)
	apps.Install(s, sc.Server, start, stop, onError)
	client, err := apps.NewUdpEchoClient(s, sc.Nodes[clientNode].Stack, apps.EchoClientConfig{
		Remote:     sc.Nodes[serverNode].Stack.Address(0),
		Port:       cfg.App.Port,
		MaxPackets: cfg.App.MaxPackets,
		Interval:   sim.Seconds(cfg.App.Interval),
		PacketSize: cfg.App.PacketSize,
	}, reg)
	if err != nil {
		return nil, err
	}
	sc.Client = client
	apps.Install(s, client, start, stop, onError)
	log.Infof("Configured applications:\n  - BSM rate: %gHz\n  - Packet size: %dB\n  - Port: %d",
		1/cfg.App.Interval, cfg.App.PacketSize, cfg.App.Port)

	// tracing
	tracer, err := trace.NewTracer(cfg.Trace)
	if err != nil {
		return nil, err
	}
	sc.Tracer = tracer
	for _, n := range sc.Nodes {
		if err := tracer.Attach(n.Device); err != nil {
			tracer.Close()
			return nil, err
		}
	}
	if cfg.Trace.PcapPrefix != "" {
		log.Infof("Enabled PCAP tracing for all nodes")
	}
	if cfg.Trace.AsciiFile != "" {
		log.Infof("Enabled ASCII tracing")
	}

	sc.Monitor = flowmon.NewMonitor(s)
	for _, n := range sc.Nodes {
		sc.Monitor.Install(n.Stack)
	}
	log.Infof("Enabled FlowMonitor")

	s.Stop(sim.Seconds(cfg.StopTime))
	return sc, nil
}

// Run executes the scenario, closes the trace files and summarizes the flows.
func (sc *Scenario) Run() (*Result, error) {
	cfg := sc.Config
	simlog.At(simlog.Scenario, sc.Sim.Now()).Infof("Starting simulation for %g seconds...", cfg.StopTime)
	sc.Sim.Run()
	now := sc.Sim.Now()

	closeErr := sc.Tracer.Close()
	if len(sc.startErrs) > 0 {
		return nil, fmt.Errorf("application failed to start: %w", sc.startErrs[0])
	}
	if closeErr != nil {
		return nil, fmt.Errorf("error closing traces: %w", closeErr)
	}

	sc.Monitor.CheckForLostPackets(sim.Seconds(cfg.MaxPerHopDelay))
	flows := sc.Monitor.FlowStats()
	mode := report.WindowMode(cfg.Report.Window)
	if mode == "" {
		mode = report.WindowActive
	}
	appStart, appStop := sim.Seconds(cfg.App.Start), sim.Seconds(cfg.App.Stop)
	simStop := sim.Seconds(cfg.StopTime)
	window := func(st flowmon.FlowStats) int64 {
		return report.ObservationWindow(mode, appStart, appStop, simStop, st)
	}

	res := &Result{
		Name:           sc.Name,
		Seed:           cfg.Seed,
		WindowMode:     mode,
		Flows:          flows,
		Summaries:      report.Summarize(flows, window),
		ClientSent:     sc.Client.Sent(),
		ClientReceived: sc.Client.Received(),
		ServerReceived: sc.Server.Received(),
		EventsExecuted: sc.Sim.EventsExecuted(),
		EndTime:        now,
		TraceFiles:     sc.Tracer.Files(),
		Trace:          trace.Summarize(sc.Tracer.Records()),
		Metrics:        sc.Metrics,
	}
	for _, n := range sc.Nodes {
		res.Positions = append(res.Positions, n.Mobility.Position(now))
	}
	simlog.At(simlog.Scenario, now).Infof("Simulation completed successfully")
	return res, nil
}
