package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanet-sim/dsrc-sim/sim/scenario"
)

func quietConfig(t *testing.T) scenario.Config {
	t.Helper()
	cfg := scenario.Default()
	cfg.Name = "cli-test"
	cfg.Trace.Dir = t.TempDir()
	cfg.LogLevels = map[string]string{}
	return cfg
}

func TestRunScenario_TextReportAndMetrics(t *testing.T) {
	// GIVEN the default scenario and a metrics destination
	cfg := quietConfig(t)
	metricsPath := filepath.Join(t.TempDir(), "metrics.prom")
	var out bytes.Buffer

	// WHEN the scenario is run with the text report
	require.NoError(t, runScenario(cfg, "text", &out, metricsPath))

	// THEN the report has both flows in the classic layout
	report := out.String()
	assert.True(t, strings.HasPrefix(report, "\n=== Simulation Results ===\nFlow ID: 1\n"), report)
	assert.Contains(t, report, "Flow ID: 2\n")
	assert.Contains(t, report, "  Packet Delivery Ratio: 100%\n")
	assert.Contains(t, report, "  Throughput: 42.24 kbps\n")
	assert.NotContains(t, report, "WARNING")

	// AND the metrics file is in the Prometheus text format
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `dsrc_app_packets_sent_total{app="echo-client",node="0"} 90`)
}

func TestRunScenario_YAMLReport(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runScenario(quietConfig(t), "yaml", &out, ""))
	assert.Contains(t, out.String(), "run: cli-test\n")
	assert.Contains(t, out.String(), "pdr_percent: 100\n")
}

func TestRunScenario_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runScenario(quietConfig(t), "xml", &out, ""))

	cfg := quietConfig(t)
	cfg.App.Interval = -1
	assert.Error(t, runScenario(cfg, "text", &out, ""))
	assert.Empty(t, out.String())
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	// GIVEN a scenario file value and a flag set only for distance and speed
	cfg := scenario.Default()
	cfg.App.MaxPackets = 7
	require.NoError(t, runCmd.Flags().Set("distance", "80"))
	require.NoError(t, runCmd.Flags().Set("speed", "30"))

	// WHEN flags are applied
	applyFlags(runCmd.Flags(), &cfg)

	// THEN changed flags win and the rest keep the file's values
	assert.Equal(t, 80.0, cfg.Distance)
	assert.Equal(t, 30.0, cfg.Velocities[0].X)
	assert.Equal(t, -30.0, cfg.Velocities[1].X)
	assert.Equal(t, 7, cfg.App.MaxPackets)
	assert.Equal(t, 23.0, cfg.Radio.TxPower)
}

func TestApplyFlags_ExplicitLogOverridesComponentLevels(t *testing.T) {
	newFlags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
		fs.StringVar(&logLevel, "log", "warn", "")
		return fs
	}

	// GIVEN the stock per-component levels and no --log
	cfg := scenario.Default()
	applyFlags(newFlags(), &cfg)

	// THEN the scenario's component levels stay
	assert.Equal(t, scenario.Default().LogLevels, cfg.LogLevels)

	// WHEN --log is given explicitly
	fs := newFlags()
	require.NoError(t, fs.Set("log", "error"))
	applyFlags(fs, &cfg)

	// THEN no component keeps its own level, so --log applies to all
	assert.Empty(t, cfg.LogLevels)
}
