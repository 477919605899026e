package wifi

import "math"

// ErrorModel gives the probability that a chunk of bits survives at a given
// signal-to-noise ratio (linear, not dB).
type ErrorModel interface {
	SuccessRate(snr float64, bits int) float64
}

// QPSKErrorModel treats bit errors as independent with the uncoded QPSK
// bit error rate 0.5*erfc(sqrt(snr/2)).
type QPSKErrorModel struct{}

func (QPSKErrorModel) SuccessRate(snr float64, bits int) float64 {
	if snr <= 0 {
		return 0
	}
	ber := 0.5 * math.Erfc(math.Sqrt(snr/2))
	return math.Pow(1-ber, float64(bits))
}

// DbToRatio converts decibels to a linear ratio.
func DbToRatio(db float64) float64 {
	return math.Pow(10, db/10)
}

// RatioToDb converts a linear ratio to decibels.
func RatioToDb(ratio float64) float64 {
	return 10 * math.Log10(ratio)
}

// ThermalNoiseDbm returns the noise floor of a receiver with the given
// bandwidth (Hz) and noise figure (dB).
func ThermalNoiseDbm(bandwidth, noiseFigure float64) float64 {
	return -174 + 10*math.Log10(bandwidth) + noiseFigure
}
