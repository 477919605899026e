// Package propagation computes received power and propagation delay between
// two antenna positions.
package propagation

import (
	"math"

	"github.com/vanet-sim/dsrc-sim/sim/mobility"
)

// SpeedOfLight in meters per second.
const SpeedOfLight = 299792458.0

// LossModel maps a transmit power (dBm) between two positions to a received power (dBm).
type LossModel interface {
	RxPower(txPowerDbm float64, a, b mobility.Vector) float64
}

// Chain applies several loss models one after the other.
type Chain []LossModel

func (c Chain) RxPower(txPowerDbm float64, a, b mobility.Vector) float64 {
	p := txPowerDbm
	for _, m := range c {
		p = m.RxPower(p, a, b)
	}
	return p
}

// Wavelength returns the wavelength in meters of a carrier at frequency hz.
func Wavelength(hz float64) float64 {
	return SpeedOfLight / hz
}

// Friis is free-space loss. Distances of zero or less return the minimum loss.
type Friis struct {
	Frequency  float64 // Hz
	SystemLoss float64 // dimensionless, >= 1
	MinLoss    float64 // dB
}

func NewFriis(frequency float64) *Friis {
	return &Friis{Frequency: frequency, SystemLoss: 1, MinLoss: 0}
}

func (m *Friis) RxPower(txPowerDbm float64, a, b mobility.Vector) float64 {
	d := mobility.Distance(a, b)
	if d <= 0 {
		return txPowerDbm - m.MinLoss
	}
	lambda := Wavelength(m.Frequency)
	numerator := lambda * lambda
	denominator := 16 * math.Pi * math.Pi * d * d * m.SystemLoss
	lossDb := -10 * math.Log10(numerator/denominator)
	return txPowerDbm - math.Max(lossDb, m.MinLoss)
}

// TwoRayGround uses free-space loss up to the crossover distance
// 4*pi*ht*hr/lambda and the ground-reflection d^4 law beyond it. Antenna
// heights are the node z coordinate plus HeightAboveZ.
type TwoRayGround struct {
	Frequency    float64 // Hz
	SystemLoss   float64
	MinDistance  float64 // meters; closer than this there is no loss
	HeightAboveZ float64 // meters
}

func NewTwoRayGround(frequency, heightAboveZ float64) *TwoRayGround {
	return &TwoRayGround{
		Frequency:    frequency,
		SystemLoss:   1,
		MinDistance:  0.5,
		HeightAboveZ: heightAboveZ,
	}
}

// CrossoverDistance returns the distance at which the model switches from
// Friis to the two-ray law for antennas at a and b.
func (m *TwoRayGround) CrossoverDistance(a, b mobility.Vector) float64 {
	ht := a.Z + m.HeightAboveZ
	hr := b.Z + m.HeightAboveZ
	return 4 * math.Pi * ht * hr / Wavelength(m.Frequency)
}

func (m *TwoRayGround) RxPower(txPowerDbm float64, a, b mobility.Vector) float64 {
	d := mobility.Distance(a, b)
	if d <= m.MinDistance {
		return txPowerDbm
	}
	ht := a.Z + m.HeightAboveZ
	hr := b.Z + m.HeightAboveZ
	if d <= m.CrossoverDistance(a, b) {
		lambda := Wavelength(m.Frequency)
		denominator := 16 * math.Pi * math.Pi * d * d * m.SystemLoss
		return txPowerDbm + 10*math.Log10(lambda*lambda/denominator)
	}
	numerator := ht * ht * hr * hr
	denominator := d * d * d * d * m.SystemLoss
	return txPowerDbm + 10*math.Log10(numerator/denominator)
}

// LogDistance is the log-distance path loss model.
type LogDistance struct {
	Exponent          float64
	ReferenceDistance float64 // meters
	ReferenceLoss     float64 // dB at the reference distance
}

func NewLogDistance() *LogDistance {
	return &LogDistance{Exponent: 3, ReferenceDistance: 1, ReferenceLoss: 46.6777}
}

func (m *LogDistance) RxPower(txPowerDbm float64, a, b mobility.Vector) float64 {
	d := mobility.Distance(a, b)
	if d <= m.ReferenceDistance {
		return txPowerDbm - m.ReferenceLoss
	}
	return txPowerDbm - (m.ReferenceLoss + 10*m.Exponent*math.Log10(d/m.ReferenceDistance))
}

// Range delivers everything within MaxRange unchanged and nothing beyond it.
type Range struct {
	MaxRange float64
}

// OutOfRangeDbm is the power reported for receivers beyond a Range cut-off.
const OutOfRangeDbm = -1000.0

func (m *Range) RxPower(txPowerDbm float64, a, b mobility.Vector) float64 {
	if mobility.Distance(a, b) <= m.MaxRange {
		return txPowerDbm
	}
	return OutOfRangeDbm
}
