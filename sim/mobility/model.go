package mobility

import "github.com/vanet-sim/dsrc-sim/sim"

// Model reports where a node is at a given simulation time.
type Model interface {
	Position(now int64) Vector
	Velocity() Vector
}

// ConstantPosition never moves.
type ConstantPosition struct {
	position Vector
}

func NewConstantPosition(p Vector) *ConstantPosition {
	return &ConstantPosition{position: p}
}

func (m *ConstantPosition) Position(int64) Vector { return m.position }
func (m *ConstantPosition) Velocity() Vector      { return Vector{} }

// ConstantVelocity moves in a straight line from a base position set at a
// base time. Changing the velocity rebases the model at the time of change,
// so the trajectory stays continuous.
type ConstantVelocity struct {
	base     Vector
	baseTime int64
	velocity Vector
}

func NewConstantVelocity(p Vector) *ConstantVelocity {
	return &ConstantVelocity{base: p}
}

// Position returns base + velocity * (now - baseTime).
func (m *ConstantVelocity) Position(now int64) Vector {
	dt := sim.ToSeconds(now - m.baseTime)
	return m.base.Add(m.velocity.Scale(dt))
}

func (m *ConstantVelocity) Velocity() Vector {
	return m.velocity
}

// SetVelocity changes the velocity effective from now on.
func (m *ConstantVelocity) SetVelocity(now int64, v Vector) {
	m.base = m.Position(now)
	m.baseTime = now
	m.velocity = v
}

// SetPosition teleports the node to p at time now.
func (m *ConstantVelocity) SetPosition(now int64, p Vector) {
	m.base = p
	m.baseTime = now
}
