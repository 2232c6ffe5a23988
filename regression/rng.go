// rng.go - Deterministic RNG for statistical harnesses.
// Copyright (C) 2025  Alen Jiji.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package regression provides the deterministic driver and correlation
// statistics used to verify that egress timing carries no information about
// ingress order.  Nothing here is wired into the production pipeline; the
// anonymity stages accept an injected RNG precisely so these harnesses can
// drive them reproducibly.
package regression

import (
	mRand "math/rand"
)

// splitMix64 is the well-known 64-bit SplitMix generator.  It is nowhere
// near cryptographically secure, which is fine: harnesses need a seedable,
// portable sequence, not secrecy.
type splitMix64 struct {
	state uint64
}

func (s *splitMix64) Uint64() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (s *splitMix64) Int63() int64 {
	return int64(s.Uint64() >> 1)
}

func (s *splitMix64) Seed(seed int64) {
	s.state = uint64(seed)
}

// NewRand returns a deterministic *rand.Rand seeded with the given value,
// suitable for injection into the mixing pool, delay queue, and path
// rotator.
func NewRand(seed uint64) *mRand.Rand {
	return mRand.New(&splitMix64{state: seed})
}
