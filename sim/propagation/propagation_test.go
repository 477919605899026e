package propagation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanet-sim/dsrc-sim/sim/mobility"
)

const dsrcFrequency = 5.9e9

func at(x float64) mobility.Vector {
	return mobility.Vector{X: x, Z: 1.5}
}

func TestTwoRayGround_WithinMinDistance_NoLoss(t *testing.T) {
	m := NewTwoRayGround(dsrcFrequency, 1.5)
	assert.Equal(t, 23.0, m.RxPower(23, at(0), at(0.4)))
}

func TestTwoRayGround_BelowCrossover_MatchesFriis(t *testing.T) {
	// GIVEN antennas 3m above ground, the crossover is ~2.2km at 5.9GHz
	m := NewTwoRayGround(dsrcFrequency, 1.5)
	assert.InDelta(t, 4*math.Pi*9/Wavelength(dsrcFrequency), m.CrossoverDistance(at(0), at(0)), 1e-9)
	assert.Greater(t, m.CrossoverDistance(at(0), at(0)), 2000.0)

	// THEN at 350m the loss equals free space
	friis := NewFriis(dsrcFrequency)
	assert.InDelta(t, friis.RxPower(23, at(0), at(350)), m.RxPower(23, at(0), at(350)), 1e-9)
}

func TestTwoRayGround_BeyondCrossover_FourthPowerLaw(t *testing.T) {
	m := NewTwoRayGround(dsrcFrequency, 1.5)
	// doubling the distance beyond the crossover costs 40*log10(2) dB
	p1 := m.RxPower(23, at(0), at(5000))
	p2 := m.RxPower(23, at(0), at(10000))
	assert.InDelta(t, 40*math.Log10(2), p1-p2, 1e-9)
	// and equals Pt * ht^2 * hr^2 / d^4
	assert.InDelta(t, 23+10*math.Log10(81/math.Pow(5000, 4)), p1, 1e-9)
}

func TestFriis_KnownValue(t *testing.T) {
	// free space loss at 100m and 5.9GHz is 20*log10(4*pi*d/lambda) ~= 87.86 dB
	m := NewFriis(dsrcFrequency)
	want := 20 * math.Log10(4*math.Pi*100/Wavelength(dsrcFrequency))
	assert.InDelta(t, 0-want, m.RxPower(0, at(0), at(100)), 1e-9)
	assert.InDelta(t, 87.86, want, 0.05)
	assert.Equal(t, 10.0, m.RxPower(10, at(0), at(0)))
}

func TestLogDistance(t *testing.T) {
	m := NewLogDistance()
	assert.InDelta(t, -46.6777, m.RxPower(0, at(0), at(0.5)), 1e-9)
	assert.InDelta(t, -(46.6777 + 30*2), m.RxPower(0, at(0), at(100)), 1e-9)
}

func TestRangeAndChain(t *testing.T) {
	c := Chain{NewFriis(dsrcFrequency), &Range{MaxRange: 250}}
	assert.Greater(t, c.RxPower(23, at(0), at(200)), -100.0)
	assert.Equal(t, OutOfRangeDbm, c.RxPower(23, at(0), at(300)))
}

func TestConstantSpeed_Delay(t *testing.T) {
	m := NewConstantSpeed()
	// ~1us for 300m
	assert.Equal(t, int64(1001), m.Delay(at(0), at(300)))
	assert.Equal(t, int64(0), m.Delay(at(0), at(0)))
}
