package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Stream names one independent source of randomness: a model kind on a node.
type Stream struct {
	Model string
	Node  int
}

// PhyStream feeds the reception error draws of a node's radio.
func PhyStream(node int) Stream { return Stream{Model: "phy", Node: node} }

// MacStream feeds the backoff draws of a node's MAC.
func MacStream(node int) Stream { return Stream{Model: "mac", Node: node} }

func (s Stream) String() string { return fmt.Sprintf("%s_%d", s.Model, s.Node) }

// Streams hands out one seeded generator per Stream. Each generator is seeded
// with seed XOR fnv1a64(stream name), so how often one node's MAC draws never
// shifts what another node's PHY sees. Not safe for concurrent use.
type Streams struct {
	seed int64
	rngs map[Stream]*rand.Rand
}

func NewStreams(seed int64) *Streams {
	return &Streams{seed: seed, rngs: make(map[Stream]*rand.Rand)}
}

// Get returns the generator of st, creating it on first use. Repeated calls
// return the same instance.
func (s *Streams) Get(st Stream) *rand.Rand {
	if r, ok := s.rngs[st]; ok {
		return r
	}
	r := rand.New(rand.NewSource(s.seed ^ streamHash(st)))
	s.rngs[st] = r
	return r
}

// Seed is the run seed the streams derive from.
func (s *Streams) Seed() int64 { return s.seed }

func streamHash(st Stream) int64 {
	h := fnv.New64a()
	h.Write([]byte(st.String()))
	return int64(h.Sum64())
}
