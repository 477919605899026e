// Package wifi models an 802.11p radio: a shared channel, a PHY with a
// simple SNR error model, an ad hoc MAC with ACKs and retries, and the net
// device gluing them to the IP layer.
package wifi

import "github.com/vanet-sim/dsrc-sim/sim"

// Standard groups the PHY and MAC timing parameters of one 802.11 flavour.
type Standard struct {
	Name             string
	Frequency        float64 // Hz
	ChannelWidth     float64 // Hz
	DataRate         float64 // bits per second
	Mode             string
	BitsPerSymbol    int // data bits per OFDM symbol at DataRate
	SymbolDuration   int64
	PreambleDuration int64
	SignalDuration   int64
	Slot             int64
	Sifs             int64
	Aifsn            int
	CWMin            int
	CWMax            int
	RetryLimit       int
}

// Standard80211p is 802.11p at 5.9 GHz on a 10 MHz channel, sending
// everything at 6 Mbps (QPSK 1/2).
var Standard80211p = Standard{
	Name:             "802.11p",
	Frequency:        5.9e9,
	ChannelWidth:     10e6,
	DataRate:         6e6,
	Mode:             "OfdmRate6MbpsBW10MHz",
	BitsPerSymbol:    48,
	SymbolDuration:   8 * sim.Microsecond,
	PreambleDuration: 32 * sim.Microsecond,
	SignalDuration:   8 * sim.Microsecond,
	Slot:             13 * sim.Microsecond,
	Sifs:             32 * sim.Microsecond,
	Aifsn:            3,
	CWMin:            15,
	CWMax:            1023,
	RetryLimit:       7,
}

const (
	serviceBits = 16
	tailBits    = 6
)

// TxDuration returns the airtime of a PPDU carrying size bytes of MPDU.
func (s Standard) TxDuration(size int) int64 {
	bits := serviceBits + 8*size + tailBits
	symbols := (bits + s.BitsPerSymbol - 1) / s.BitsPerSymbol
	return s.PreambleDuration + s.SignalDuration + int64(symbols)*s.SymbolDuration
}

// Aifs is the idle time the MAC waits before counting down its backoff.
func (s Standard) Aifs() int64 {
	return s.Sifs + int64(s.Aifsn)*s.Slot
}

// AckDuration is the airtime of an ACK frame.
func (s Standard) AckDuration() int64 {
	return s.TxDuration(AckSize)
}

// AckTimeout is how long after the end of a unicast transmission the sender
// waits for the ACK.
func (s Standard) AckTimeout() int64 {
	return s.Sifs + s.AckDuration() + s.Slot
}
