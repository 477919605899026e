// Package mobility places nodes in space and moves them over simulated time.
package mobility

import (
	"fmt"
	"math"
)

// Vector is a position or velocity in meters (or meters per second).
type Vector struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{v.X * f, v.Y * f, v.Z * f}
}

func (v Vector) String() string {
	return fmt.Sprintf("%g:%g:%g", v.X, v.Y, v.Z)
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vector) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
