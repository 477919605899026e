package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/apps"
	"github.com/vanet-sim/dsrc-sim/sim/metrics"
	"github.com/vanet-sim/dsrc-sim/sim/report"
	"github.com/vanet-sim/dsrc-sim/sim/trace"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	cfg.Name = "test-run"
	cfg.Trace.Dir = t.TempDir()
	cfg.LogLevels = map[string]string{}
	return cfg
}

func run(t *testing.T, cfg Config) *Result {
	t.Helper()
	sc, err := Build(cfg)
	require.NoError(t, err)
	res, err := sc.Run()
	require.NoError(t, err)
	return res
}

func TestDefaultScenario_EveryEchoDelivered(t *testing.T) {
	// GIVEN the stock two-vehicle scenario
	cfg := testConfig(t)

	// WHEN it runs to its 10 s stop time
	res := run(t, cfg)

	// THEN both flows deliver all 90 packets
	assert.Equal(t, 10*sim.Second, res.EndTime)
	assert.Equal(t, 90, res.ClientSent)
	assert.Equal(t, 90, res.ServerReceived)
	assert.Equal(t, 90, res.ClientReceived)
	require.Len(t, res.Summaries, 2)
	for i, s := range res.Summaries {
		assert.Equal(t, uint32(i+1), s.FlowID)
		assert.Equal(t, uint32(90), s.TxPackets)
		assert.Equal(t, uint32(90), s.RxPackets)
		require.NotNil(t, s.PDR)
		assert.Equal(t, 100.0, *s.PDR)
		require.NotNil(t, s.AverageDelay)
		assert.Greater(t, *s.AverageDelay, 0.0)
		assert.Less(t, *s.AverageDelay, 0.01)
		require.NotNil(t, s.Throughput)
		assert.InDelta(t, 42.24, *s.Throughput, 1e-9)
		assert.Equal(t, 9.0, s.WindowSec)
	}
	assert.Equal(t, "10.1.1.1:49153", res.Summaries[0].Source)
	assert.Equal(t, "10.1.1.2:5000", res.Summaries[0].Destination)
	assert.Equal(t, "10.1.1.2:5000", res.Summaries[1].Source)

	// AND the vehicles have passed each other
	require.Len(t, res.Positions, 2)
	assert.InDelta(t, 200, res.Positions[0].X, 1e-9)
	assert.InDelta(t, -150, res.Positions[1].X, 1e-9)
	assert.InDelta(t, 1.5, res.Positions[0].Z, 1e-9)

	// AND traces exist for both devices plus the ascii file
	for _, name := range []string{"dsrc-sim-0-0.pcap", "dsrc-sim-1-0.pcap", "dsrc-trace.tr"} {
		info, err := os.Stat(filepath.Join(cfg.Trace.Dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(24), name)
	}
	assert.Len(t, res.TraceFiles, 3)
	assert.Equal(t, 90.0, testutil.ToFloat64(res.Metrics.AppSentCounter(0, apps.EchoClientName)))
	assert.Equal(t, 1.0, testutil.ToFloat64(res.Metrics.ArpRequestCounter(0)))
}

func TestDefaultScenario_Deterministic(t *testing.T) {
	a := run(t, testConfig(t))
	b := run(t, testConfig(t))
	assert.Equal(t, a.EventsExecuted, b.EventsExecuted)
	assert.Equal(t, a.Flows, b.Flows)
}

func TestScenario_FlowWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.Window = string(report.WindowFlow)
	res := run(t, cfg)

	// the flow window ends with the last echo, shortly after 9.9 s
	s := res.Summaries[0]
	assert.Greater(t, s.WindowSec, 8.9)
	assert.Less(t, s.WindowSec, 9.0)
	assert.Greater(t, *s.Throughput, 42.24)
	assert.Equal(t, report.WindowFlow, res.WindowMode)
}

func TestScenario_EarlyStop_WindowEndsAtStopTime(t *testing.T) {
	// GIVEN the stock scenario stopped at 5 s, before the apps' 10 s stop
	cfg := testConfig(t)
	cfg.StopTime = 5

	// WHEN it runs
	res := run(t, cfg)

	// THEN throughput is taken over the 4 s actually observed
	assert.Equal(t, 5*sim.Second, res.EndTime)
	require.Len(t, res.Summaries, 2)
	for _, s := range res.Summaries {
		assert.Equal(t, uint32(40), s.RxPackets)
		assert.Equal(t, 4.0, s.WindowSec)
		require.NotNil(t, s.Throughput)
		assert.InDelta(t, 42.24, *s.Throughput, 1e-9)
	}
}

func TestScenario_DeliveryDegradesPastRange(t *testing.T) {
	// GIVEN vehicles driving apart past a 200 m range cut-off
	cfg := testConfig(t)
	cfg.Propagation.MaxRange = 200
	cfg.Trace.Record = true

	// WHEN it runs
	res := run(t, cfg)

	// THEN early requests arrive and later ones do not
	require.Len(t, res.Summaries, 2)
	req := res.Summaries[0]
	assert.Equal(t, uint32(90), req.TxPackets)
	assert.Greater(t, req.RxPackets, uint32(0))
	assert.Less(t, req.RxPackets, req.TxPackets)
	require.NotNil(t, req.PDR)
	assert.Greater(t, *req.PDR, 0.0)
	assert.Less(t, *req.PDR, 100.0)

	// AND every request that arrived was echoed back
	assert.Equal(t, req.RxPackets, res.Summaries[1].TxPackets)
	assert.Equal(t, res.ServerReceived, res.ClientReceived)
	assert.Greater(t, res.Trace.DropsByReason[metrics.ReasonBelowSensitivity], 0)
}

func TestScenario_OutOfRange_NothingReceived(t *testing.T) {
	// GIVEN parked vehicles beyond a hard 10 m range
	cfg := testConfig(t)
	cfg.Velocities = nil
	cfg.Propagation.MaxRange = 10
	cfg.Trace = trace.Config{Record: true}

	res := run(t, cfg)

	// THEN only the request flow exists, and none of it arrives
	require.Len(t, res.Summaries, 1)
	s := res.Summaries[0]
	assert.Equal(t, uint32(90), s.TxPackets)
	assert.Equal(t, uint32(0), s.RxPackets)
	assert.Equal(t, 0.0, *s.PDR)
	assert.Nil(t, s.AverageDelay)
	assert.Nil(t, s.Throughput)
	assert.Zero(t, res.ClientReceived)
	assert.Zero(t, res.Trace.RxFrames)
	assert.Greater(t, res.Trace.DropsByReason[metrics.ReasonBelowSensitivity], 0)
	assert.Empty(t, res.TraceFiles)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Nodes = 1
	cfg.Network = "10.1.1"
	cfg.Propagation.Model = "okumura-hata"
	cfg.App.Interval = 0
	cfg.App.Stop = 0.5
	cfg.Report.Window = "lifetime"
	cfg.LogLevels = map[string]string{"WifiPhy": "loud"}

	err := cfg.Validate()
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 8)

	_, err = Build(cfg)
	assert.Error(t, err)
}

func TestValidate_MaskMustFitNodes(t *testing.T) {
	tests := []struct {
		name    string
		mask    string
		nodes   int
		wantErr bool
	}{
		{"host mask", "255.255.255.255", 2, true},
		{"point to point", "255.255.255.254", 2, true},
		{"slash 30 fits two", "255.255.255.252", 2, false},
		{"slash 30 too small for three", "255.255.255.252", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Mask = tt.mask
			cfg.Nodes = tt.nodes
			if tt.wantErr {
				assert.ErrorContains(t, cfg.Validate(), "has room for")
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaultsStrictly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("distance: 100\nradio:\n  tx_power: 20\napp:\n  max_packets: 10\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cfg.Distance)
	assert.Equal(t, 20.0, cfg.Radio.TxPower)
	assert.Equal(t, 10, cfg.App.MaxPackets)
	// untouched fields keep their defaults
	assert.Equal(t, uint16(5000), cfg.App.Port)
	assert.Equal(t, 0.1, cfg.App.Interval)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("distanse: 100\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err, "unknown field must be rejected")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	out, err := Default().YAML()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
