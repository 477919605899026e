package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vanet-sim/dsrc-sim/sim/mobility"
	"github.com/vanet-sim/dsrc-sim/sim/scenario"
	"github.com/vanet-sim/dsrc-sim/sim/simlog"
)

var (
	// CLI flags; each one overrides the scenario file only when given
	configPath   string  // YAML scenario file
	logLevel     string  // default level for every component
	reportFormat string  // text or yaml
	metricsFile  string  // Prometheus text dump destination
	runName      string  // run label
	seed         int64   // master seed
	distance     float64 // initial distance between vehicles (m)
	speed        float64 // vehicle speed (m/s); node 0 drives +x, node 1 -x
	height       float64 // node z coordinate (m)
	txPower      float64 // dBm
	rxGain       float64 // dB
	noiseFigure  float64 // dB
	propModel    string  // propagation loss model
	maxRange     float64 // hard range cut-off (m), 0 disables
	network      string  // IPv4 network
	mask         string  // IPv4 mask
	port         uint16  // echo server port
	packetSize   int     // echo payload (bytes)
	interval     float64 // seconds between echo requests
	maxPackets   int     // echo requests to send
	appStart     float64 // seconds
	appStop      float64 // seconds
	stopTime     float64 // seconds
	traceDir     string  // output directory for traces
	pcapPrefix   string  // pcap file prefix, empty disables
	asciiTrace   string  // ascii trace file, empty disables
	window       string  // throughput window: active or flow
	detailed     bool    // extended report
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dsrc-sim",
	Short: "Discrete-event simulator for two-vehicle DSRC (802.11p) links",
}

// runCmd builds and runs a scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the two-vehicle echo scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		simlog.SetDefaultLevel(level)

		cfg := scenario.Default()
		if configPath != "" {
			if cfg, err = scenario.Load(configPath); err != nil {
				logrus.Fatalf("Failed to load scenario: %v", err)
			}
		}
		applyFlags(cmd.Flags(), &cfg)

		if err := runScenario(cfg, reportFormat, os.Stdout, metricsFile); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// applyFlags copies every explicitly set flag into cfg.
func applyFlags(fs *pflag.FlagSet, cfg *scenario.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	// an explicit --log governs every component, over the file's log_levels
	set("log", func() { cfg.LogLevels = nil })
	set("name", func() { cfg.Name = runName })
	set("seed", func() { cfg.Seed = seed })
	set("distance", func() { cfg.Distance = distance })
	set("speed", func() {
		cfg.Velocities = []mobility.Vector{{X: speed}, {X: -speed}}
	})
	set("height", func() { cfg.Height = height })
	set("tx-power", func() { cfg.Radio.TxPower = txPower })
	set("rx-gain", func() { cfg.Radio.RxGain = rxGain })
	set("noise-figure", func() { cfg.Radio.NoiseFigure = noiseFigure })
	set("propagation", func() { cfg.Propagation.Model = propModel })
	set("max-range", func() { cfg.Propagation.MaxRange = maxRange })
	set("network", func() { cfg.Network = network })
	set("mask", func() { cfg.Mask = mask })
	set("port", func() { cfg.App.Port = port })
	set("packet-size", func() { cfg.App.PacketSize = packetSize })
	set("interval", func() { cfg.App.Interval = interval })
	set("max-packets", func() { cfg.App.MaxPackets = maxPackets })
	set("app-start", func() { cfg.App.Start = appStart })
	set("app-stop", func() { cfg.App.Stop = appStop })
	set("stop-time", func() { cfg.StopTime = stopTime })
	set("trace-dir", func() { cfg.Trace.Dir = traceDir })
	set("pcap-prefix", func() { cfg.Trace.PcapPrefix = pcapPrefix })
	set("ascii-trace", func() { cfg.Trace.AsciiFile = asciiTrace })
	set("window", func() { cfg.Report.Window = window })
	set("detailed", func() { cfg.Report.Detailed = detailed })
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	d := scenario.Default()

	runCmd.Flags().StringVar(&configPath, "config", "", "YAML scenario file; flags override its values")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level for every component (trace, debug, info, warn, error, fatal, panic); when not given, the scenario's log_levels apply on top of warn")
	runCmd.Flags().StringVar(&reportFormat, "report-format", "text", "Report format (text, yaml)")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	runCmd.Flags().StringVar(&runName, "name", "", "Run label (random when empty)")
	runCmd.Flags().Int64Var(&seed, "seed", d.Seed, "Seed for all simulation randomness")

	// mobility
	runCmd.Flags().Float64Var(&distance, "distance", d.Distance, "Initial distance between the vehicles (m)")
	runCmd.Flags().Float64Var(&speed, "speed", d.Velocities[0].X, "Vehicle speed (m/s); the vehicles drive towards each other")
	runCmd.Flags().Float64Var(&height, "height", d.Height, "Node height (m)")

	// radio and channel
	runCmd.Flags().Float64Var(&txPower, "tx-power", d.Radio.TxPower, "Transmit power (dBm)")
	runCmd.Flags().Float64Var(&rxGain, "rx-gain", d.Radio.RxGain, "Receiver gain (dB)")
	runCmd.Flags().Float64Var(&noiseFigure, "noise-figure", d.Radio.NoiseFigure, "Receiver noise figure (dB)")
	runCmd.Flags().StringVar(&propModel, "propagation", d.Propagation.Model, "Loss model (two-ray-ground, friis, log-distance)")
	runCmd.Flags().Float64Var(&maxRange, "max-range", d.Propagation.MaxRange, "Hard range cut-off (m), 0 disables")

	// addressing and traffic
	runCmd.Flags().StringVar(&network, "network", d.Network, "IPv4 network")
	runCmd.Flags().StringVar(&mask, "mask", d.Mask, "IPv4 network mask")
	runCmd.Flags().Uint16Var(&port, "port", d.App.Port, "Echo server UDP port")
	runCmd.Flags().IntVar(&packetSize, "packet-size", d.App.PacketSize, "Echo payload size (bytes)")
	runCmd.Flags().Float64Var(&interval, "interval", d.App.Interval, "Seconds between echo requests")
	runCmd.Flags().IntVar(&maxPackets, "max-packets", d.App.MaxPackets, "Echo requests to send (0 = until stopped)")
	runCmd.Flags().Float64Var(&appStart, "app-start", d.App.Start, "Application start time (s)")
	runCmd.Flags().Float64Var(&appStop, "app-stop", d.App.Stop, "Application stop time (s)")
	runCmd.Flags().Float64Var(&stopTime, "stop-time", d.StopTime, "Simulation stop time (s)")

	// outputs
	runCmd.Flags().StringVar(&traceDir, "trace-dir", d.Trace.Dir, "Directory for trace files")
	runCmd.Flags().StringVar(&pcapPrefix, "pcap-prefix", d.Trace.PcapPrefix, "Pcap file prefix, empty disables pcap")
	runCmd.Flags().StringVar(&asciiTrace, "ascii-trace", d.Trace.AsciiFile, "Ascii trace file, empty disables it")
	runCmd.Flags().StringVar(&window, "window", d.Report.Window, "Throughput window (active, flow)")
	runCmd.Flags().BoolVar(&detailed, "detailed", d.Report.Detailed, "Add loss, jitter and delay spread to the report")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(defaultsCmd)
}
