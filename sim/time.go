package sim

import (
	"math"
	"strconv"
)

// Ticks are nanoseconds of simulated time.
const (
	Nanosecond  int64 = 1
	Microsecond       = 1000 * Nanosecond
	Millisecond       = 1000 * Microsecond
	Second            = 1000 * Millisecond
)

// Seconds converts a duration in seconds to ticks, rounding to the nearest tick.
func Seconds(s float64) int64 {
	return int64(math.Round(s * float64(Second)))
}

// Milliseconds converts a duration in milliseconds to ticks.
func Milliseconds(ms float64) int64 {
	return int64(math.Round(ms * float64(Millisecond)))
}

// Microseconds converts a duration in microseconds to ticks.
func Microseconds(us float64) int64 {
	return int64(math.Round(us * float64(Microsecond)))
}

// ToSeconds converts ticks to seconds.
func ToSeconds(t int64) float64 {
	return float64(t) / float64(Second)
}

// FormatTime renders a tick count the way log lines show it, e.g. "+1.00089s".
func FormatTime(t int64) string {
	return "+" + strconv.FormatFloat(ToSeconds(t), 'g', -1, 64) + "s"
}
