package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vanet-sim/dsrc-sim/sim"
	"github.com/vanet-sim/dsrc-sim/sim/report"
	"github.com/vanet-sim/dsrc-sim/sim/scenario"
)

// runScenario builds and runs cfg, then writes the report to out and the
// metrics to metricsPath when it is set.
func runScenario(cfg scenario.Config, format string, out io.Writer, metricsPath string) error {
	if format != "text" && format != "yaml" {
		return fmt.Errorf("unknown report format %q (want text or yaml)", format)
	}
	sc, err := scenario.Build(cfg)
	if err != nil {
		return err
	}
	res, err := sc.Run()
	if err != nil {
		return err
	}
	logrus.Infof("Run %s finished at %gs after %d events", res.Name, sim.ToSeconds(res.EndTime), res.EventsExecuted)

	switch format {
	case "yaml":
		err = report.WriteYAML(out, res.Report())
	default:
		err = report.Print(out, res.Summaries, report.Options{Detailed: cfg.Report.Detailed})
	}
	if err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}

	if metricsPath != "" {
		if err := writeMetrics(metricsPath, res); err != nil {
			return err
		}
		logrus.Infof("Metrics written to %s", metricsPath)
	}
	return nil
}

func writeMetrics(path string, res *scenario.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating metrics file: %w", err)
	}
	if err := res.Metrics.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
