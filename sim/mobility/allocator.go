package mobility

import "fmt"

// ListPositionAllocator hands out positions in the order they were added.
type ListPositionAllocator struct {
	positions []Vector
	next      int
}

func NewListPositionAllocator(positions ...Vector) *ListPositionAllocator {
	return &ListPositionAllocator{positions: positions}
}

func (a *ListPositionAllocator) Add(p Vector) {
	a.positions = append(a.positions, p)
}

// Next returns the next unused position.
func (a *ListPositionAllocator) Next() (Vector, error) {
	if a.next >= len(a.positions) {
		return Vector{}, fmt.Errorf("position allocator exhausted after %d positions", len(a.positions))
	}
	p := a.positions[a.next]
	a.next++
	return p, nil
}
