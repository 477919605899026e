// Package testutil holds the golden scenario cases and assertion helpers
// shared by the scenario and cmd tests.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"
)

// GoldenDataset is the structure of testdata/goldendataset.yaml.
type GoldenDataset struct {
	Tests []GoldenTestCase `yaml:"tests"`
}

// GoldenTestCase is one scenario variant and the per-flow results it must
// produce. Zero-valued knobs keep the scenario default; Speed is a pointer
// so a parked run can be told apart from an unset one.
type GoldenTestCase struct {
	Name        string   `yaml:"name"`
	Seed        int64    `yaml:"seed"`
	Distance    float64  `yaml:"distance"`
	Speed       *float64 `yaml:"speed"` // node 0 moves at +speed, node 1 at -speed
	Propagation string   `yaml:"propagation"`
	MaxRange    float64  `yaml:"max_range"`
	PacketSize  int      `yaml:"packet_size"`
	Interval    float64  `yaml:"interval"`
	MaxPackets  int      `yaml:"max_packets"`
	StopTime    float64  `yaml:"stop_time"`

	Flows []GoldenFlow `yaml:"flows"`
}

// GoldenFlow is the expected summary of one flow, in flow ID order.
type GoldenFlow struct {
	Source      string  `yaml:"source"`
	Destination string  `yaml:"destination"`
	TxPackets   uint32  `yaml:"tx_packets"`
	RxPackets   uint32  `yaml:"rx_packets"`
	PDR         float64 `yaml:"pdr_percent"`
	Throughput  float64 `yaml:"throughput_kbps"` // only checked when rx_packets > 0
}

// LoadGoldenDataset loads the golden dataset from the repository testdata
// directory, resolved relative to this source file.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// sim/internal/testutil/ -> testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("golden dataset has no tests")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
